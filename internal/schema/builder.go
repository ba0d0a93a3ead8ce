package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrAlreadyMaterialized indicates the table for a type already exists.
	ErrAlreadyMaterialized = errors.New("schema: a table for this type has already been generated")
	// ErrTypeDisabled indicates materialization of a disabled type.
	ErrTypeDisabled = errors.New("schema: cannot generate a table for a disabled type")
	// ErrTypeNotEmpty blocks dropping a table that still holds rows.
	ErrTypeNotEmpty = errors.New("schema: type still has items")
)

// Builder materializes storage for type descriptors.
type Builder struct {
	pool *pgxpool.Pool
}

// NewBuilder constructs a Builder.
func NewBuilder(pool *pgxpool.Pool) *Builder {
	return &Builder{pool: pool}
}

// BuildCreateSQL renders the CREATE TABLE statement for a descriptor. Every
// generated table carries an id and an owner relation to users; identifiers
// have been validated against the descriptor name pattern.
func BuildCreateSQL(def TypeDef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", def.Name)
	b.WriteString("\tid BIGSERIAL PRIMARY KEY,\n")
	b.WriteString("\towner BIGINT NOT NULL REFERENCES users (id)")
	for _, field := range def.Fields {
		fmt.Fprintf(&b, ",\n\t%s %s", quoteIdent(field.Name), field.Type.SQL())
		if !field.Nullable {
			b.WriteString(" NOT NULL")
		}
		if field.Unique {
			b.WriteString(" UNIQUE")
		}
		if field.Kind() == KindRelation {
			fmt.Fprintf(&b, " REFERENCES %s (id)", field.RefModel)
		}
	}
	b.WriteString("\n)")
	return b.String()
}

// quoteIdent guards validated identifiers against keyword collisions.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

// Materialize creates the backing table for an enabled type. Disabled types
// and duplicates are refused.
func (b *Builder) Materialize(ctx context.Context, def TypeDef) error {
	if !def.Enabled {
		return ErrTypeDisabled
	}
	if err := def.Validate(); err != nil {
		return err
	}
	exists, err := b.tableExists(ctx, def.Name)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyMaterialized
	}
	_, err = b.pool.Exec(ctx, BuildCreateSQL(def))
	return err
}

// Drop removes the backing table. Dropping is blocked while rows exist; the
// caller deletes items first, explicitly.
func (b *Builder) Drop(ctx context.Context, def TypeDef) error {
	exists, err := b.tableExists(ctx, def.Name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	var count int64
	if err := b.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, def.Name)).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return ErrTypeNotEmpty
	}
	_, err = b.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE %s`, def.Name))
	return err
}

func (b *Builder) tableExists(ctx context.Context, name string) (bool, error) {
	var regclass *string
	if err := b.pool.QueryRow(ctx, `SELECT to_regclass($1)::text`, name).Scan(&regclass); err != nil {
		return false, err
	}
	return regclass != nil, nil
}
