package schema

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// Repository defines persistence for type and field descriptors.
type Repository interface {
	LoadAll(ctx context.Context) ([]TypeDef, error)
	GetByID(ctx context.Context, id int64) (*TypeDef, error)
	GetByName(ctx context.Context, name string) (*TypeDef, error)
	Create(ctx context.Context, def *TypeDef) (int64, error)
	SetEnabled(ctx context.Context, id int64, enabled bool) error
	Delete(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// LoadAll returns every descriptor with its fields in definition order.
func (r *PGRepository) LoadAll(ctx context.Context) ([]TypeDef, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, enabled, created_at FROM types ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var defs []TypeDef
	index := make(map[int64]int)
	for rows.Next() {
		var def TypeDef
		if err := rows.Scan(&def.ID, &def.Name, &def.Enabled, &def.CreatedAt); err != nil {
			return nil, err
		}
		index[def.ID] = len(defs)
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fieldRows, err := r.pool.Query(ctx,
		`SELECT id, type_id, name, field_type, ref_model, nullable, "unique", label, description
		 FROM fields ORDER BY type_id, id`)
	if err != nil {
		return nil, err
	}
	defer fieldRows.Close()
	for fieldRows.Next() {
		var (
			field  FieldDef
			typeID int64
		)
		if err := fieldRows.Scan(&field.ID, &typeID, &field.Name, &field.TypeName,
			&field.RefModel, &field.Nullable, &field.Unique, &field.Label, &field.Description); err != nil {
			return nil, err
		}
		if field.Type, err = ParseColumnType(field.TypeName); err != nil {
			return nil, err
		}
		if i, ok := index[typeID]; ok {
			defs[i].Fields = append(defs[i].Fields, field)
		}
	}
	if err := fieldRows.Err(); err != nil {
		return nil, err
	}
	return defs, nil
}

func (r *PGRepository) getBy(ctx context.Context, where string, arg any) (*TypeDef, error) {
	var def TypeDef
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, enabled, created_at FROM types WHERE `+where, arg).
		Scan(&def.ID, &def.Name, &def.Enabled, &def.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, field_type, ref_model, nullable, "unique", label, description
		 FROM fields WHERE type_id = $1 ORDER BY id`, def.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var field FieldDef
		if err := rows.Scan(&field.ID, &field.Name, &field.TypeName, &field.RefModel,
			&field.Nullable, &field.Unique, &field.Label, &field.Description); err != nil {
			return nil, err
		}
		if field.Type, err = ParseColumnType(field.TypeName); err != nil {
			return nil, err
		}
		def.Fields = append(def.Fields, field)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &def, nil
}

// GetByID fetches a descriptor by id.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*TypeDef, error) {
	return r.getBy(ctx, `id = $1`, id)
}

// GetByName fetches a descriptor by type name.
func (r *PGRepository) GetByName(ctx context.Context, name string) (*TypeDef, error) {
	return r.getBy(ctx, `name = $1`, name)
}

// Create inserts the descriptor and its fields in one transaction.
func (r *PGRepository) Create(ctx context.Context, def *TypeDef) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO types (name, enabled) VALUES ($1, $2) RETURNING id`,
		def.Name, def.Enabled).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, shared.ErrAlreadyExists
		}
		return 0, err
	}
	for _, field := range def.Fields {
		_, err := tx.Exec(ctx,
			`INSERT INTO fields (type_id, name, field_type, ref_model, nullable, "unique", label, description)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id, field.Name, field.Type.String(), field.RefModel,
			field.Nullable, field.Unique, field.Label, field.Description)
		if err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

// SetEnabled flips the enabled flag of a type.
func (r *PGRepository) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE types SET enabled = $2 WHERE id = $1`, id, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes the descriptor and its fields.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `DELETE FROM fields WHERE type_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM types WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return tx.Commit(ctx)
}

var _ Repository = (*PGRepository)(nil)
