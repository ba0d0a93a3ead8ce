package actors

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// Repository defines persistence operations for actors.
type Repository interface {
	Create(ctx context.Context, actor *Actor) (int64, error)
	GetByID(ctx context.Context, id int64) (*Actor, error)
	GetByName(ctx context.Context, name string) (*Actor, error)
	List(ctx context.Context) ([]Actor, error)
	Update(ctx context.Context, actor *Actor) error
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

const actorColumns = `id, name, email, password, rank, enabled, created_at, updated_at`

func scanActor(row pgx.Row) (*Actor, error) {
	var actor Actor
	err := row.Scan(&actor.ID, &actor.Name, &actor.Email, &actor.Password,
		&actor.Rank, &actor.Enabled, &actor.CreatedAt, &actor.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &actor, nil
}

// Create inserts a new actor and returns its id.
func (r *PGRepository) Create(ctx context.Context, actor *Actor) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password, rank, enabled)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		actor.Name, actor.Email, actor.Password, actor.Rank, actor.Enabled).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, shared.ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

// GetByID fetches an actor by id.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Actor, error) {
	return scanActor(r.pool.QueryRow(ctx,
		`SELECT `+actorColumns+` FROM users WHERE id = $1`, id))
}

// GetByName fetches an actor by its unique name.
func (r *PGRepository) GetByName(ctx context.Context, name string) (*Actor, error) {
	return scanActor(r.pool.QueryRow(ctx,
		`SELECT `+actorColumns+` FROM users WHERE name = $1`, name))
}

// List returns all actors ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]Actor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+actorColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Actor
	for rows.Next() {
		var actor Actor
		if err := rows.Scan(&actor.ID, &actor.Name, &actor.Email, &actor.Password,
			&actor.Rank, &actor.Enabled, &actor.CreatedAt, &actor.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, actor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update persists every column of the actor.
func (r *PGRepository) Update(ctx context.Context, actor *Actor) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $2, email = $3, password = $4, rank = $5, enabled = $6, updated_at = NOW()
		 WHERE id = $1`,
		actor.ID, actor.Name, actor.Email, actor.Password, actor.Rank, actor.Enabled)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes an actor by id.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

var _ Repository = (*PGRepository)(nil)
