package resources

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vulcan-api/vulcan-api/internal/permissions"
	"github.com/vulcan-api/vulcan-api/internal/schema"
	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// Row is one item of a generated model, keyed by column name.
type Row map[string]any

// TxStore is the transaction-scoped store. Rules exposes a rule finder bound
// to the same transaction, so a permission check and its write share one
// boundary and cannot race a concurrent rule change.
type TxStore interface {
	Rules() permissions.RuleFinder
	Get(ctx context.Context, def schema.TypeDef, id int64) (Row, error)
	Insert(ctx context.Context, def schema.TypeDef, row Row) (int64, error)
	Update(ctx context.Context, def schema.TypeDef, id int64, row Row) error
	Delete(ctx context.Context, def schema.TypeDef, id int64) error
}

// Store persists rows of generated models.
type Store interface {
	Select(ctx context.Context, def schema.TypeDef, q Query) ([]Row, int64, error)
	Get(ctx context.Context, def schema.TypeDef, id int64) (Row, error)
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
	ops  rowOps
}

// NewStore constructs a PostgreSQL row store.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool, ops: rowOps{db: pool}}
}

// columnsOf returns the full column list of a generated table, id and owner
// first, then the descriptor fields in definition order.
func columnsOf(def schema.TypeDef) []string {
	columns := make([]string, 0, len(def.Fields)+2)
	columns = append(columns, "id", "owner")
	for _, field := range def.Fields {
		columns = append(columns, field.Name)
	}
	return columns
}

func quotedColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = `"` + column + `"`
	}
	return strings.Join(quoted, ", ")
}

// Select returns one page of rows plus the unpaginated match count.
func (s *PGStore) Select(ctx context.Context, def schema.TypeDef, q Query) ([]Row, int64, error) {
	columns := columnsOf(def)
	where, args := buildWhere(q.Filters)

	var count int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, def.Name, where)
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s%s LIMIT %d OFFSET %d`,
		quotedColumns(columns), def.Name, where, buildOrder(q.Order),
		q.Items, (q.Page-1)*q.Items)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, 0, err
		}
		row := make(Row, len(columns))
		for i, column := range columns {
			row[column] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, count, nil
}

func buildWhere(filters []Filter) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, filter := range filters {
		column := `"` + filter.Column + `"`
		switch filter.Op {
		case OpNull:
			clauses = append(clauses, column+" IS NULL")
		case OpLte:
			args = append(args, filter.Value)
			clauses = append(clauses, fmt.Sprintf("%s <= $%d", column, len(args)))
		case OpGte:
			args = append(args, filter.Value)
			clauses = append(clauses, fmt.Sprintf("%s >= $%d", column, len(args)))
		case OpNe:
			args = append(args, filter.Value)
			clauses = append(clauses, fmt.Sprintf("%s <> $%d", column, len(args)))
		default:
			args = append(args, filter.Value)
			clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func buildOrder(order *Order) string {
	if order == nil {
		return ` ORDER BY id`
	}
	direction := "ASC"
	if order.Desc {
		direction = "DESC"
	}
	return fmt.Sprintf(` ORDER BY "%s" %s`, order.Column, direction)
}

// Get fetches a single row outside any transaction.
func (s *PGStore) Get(ctx context.Context, def schema.TypeDef, id int64) (Row, error) {
	return s.ops.get(ctx, def, id)
}

// WithTx runs fn inside one transaction.
func (s *PGStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(ctx, &pgTxStore{tx: tx, ops: rowOps{db: tx}}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTxStore struct {
	tx  pgx.Tx
	ops rowOps
}

func (s *pgTxStore) Rules() permissions.RuleFinder {
	return permissions.NewRepository(s.tx)
}

func (s *pgTxStore) Get(ctx context.Context, def schema.TypeDef, id int64) (Row, error) {
	return s.ops.get(ctx, def, id)
}

func (s *pgTxStore) Insert(ctx context.Context, def schema.TypeDef, row Row) (int64, error) {
	return s.ops.insert(ctx, def, row)
}

func (s *pgTxStore) Update(ctx context.Context, def schema.TypeDef, id int64, row Row) error {
	return s.ops.update(ctx, def, id, row)
}

func (s *pgTxStore) Delete(ctx context.Context, def schema.TypeDef, id int64) error {
	return s.ops.delete(ctx, def, id)
}

// rowOps implements row access over a pool or transaction.
type rowOps struct {
	db permissions.Querier
}

func (o rowOps) get(ctx context.Context, def schema.TypeDef, id int64) (Row, error) {
	columns := columnsOf(def)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, quotedColumns(columns), def.Name)
	rows, err := o.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, shared.ErrNotFound
	}
	values, err := rows.Values()
	if err != nil {
		return nil, err
	}
	row := make(Row, len(columns))
	for i, column := range columns {
		row[column] = values[i]
	}
	return row, nil
}

func (o rowOps) insert(ctx context.Context, def schema.TypeDef, row Row) (int64, error) {
	columns := make([]string, 0, len(row))
	placeholders := make([]string, 0, len(row))
	args := make([]any, 0, len(row))
	for _, column := range columnsOf(def) {
		if column == "id" {
			continue
		}
		value, ok := row[column]
		if !ok {
			continue
		}
		args = append(args, value)
		columns = append(columns, `"`+column+`"`)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id`,
		def.Name, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	var id int64
	if err := o.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (o rowOps) update(ctx context.Context, def schema.TypeDef, id int64, row Row) error {
	assignments := make([]string, 0, len(row))
	args := []any{id}
	for _, column := range columnsOf(def) {
		if column == "id" {
			continue
		}
		value, ok := row[column]
		if !ok {
			continue
		}
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf(`"%s" = $%d`, column, len(args)))
	}
	if len(assignments) == 0 {
		return nil
	}
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1`, def.Name, strings.Join(assignments, ", "))
	tag, err := o.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (o rowOps) delete(ctx context.Context, def schema.TypeDef, id int64) error {
	tag, err := o.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, def.Name), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var (
	_ Store   = (*PGStore)(nil)
	_ TxStore = (*pgTxStore)(nil)
)
