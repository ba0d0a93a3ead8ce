package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vulcan-api/vulcan-api/internal/actors"
	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// Repository defines the lookups the authentication gate needs.
type Repository interface {
	FindActorByName(ctx context.Context, name string) (*actors.Actor, error)
	FindActorByID(ctx context.Context, id int64) (*actors.Actor, error)
	FindEternalToken(ctx context.Context, token string) (*EternalToken, error)
	GetEternalToken(ctx context.Context, id int64) (*EternalToken, error)
	ListEternalTokens(ctx context.Context, userID int64) ([]EternalToken, error)
	CreateEternalToken(ctx context.Context, token *EternalToken) (int64, error)
	DeleteEternalToken(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool   *pgxpool.Pool
	actors *actors.PGRepository
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool, actors: actors.NewRepository(pool)}
}

// FindActorByName fetches an actor by its unique name.
func (r *PGRepository) FindActorByName(ctx context.Context, name string) (*actors.Actor, error) {
	return r.actors.GetByName(ctx, name)
}

// FindActorByID fetches an actor by id.
func (r *PGRepository) FindActorByID(ctx context.Context, id int64) (*actors.Actor, error) {
	return r.actors.GetByID(ctx, id)
}

const eternalColumns = `id, name, user_id, token, created_at`

func scanEternal(row pgx.Row) (*EternalToken, error) {
	var token EternalToken
	err := row.Scan(&token.ID, &token.Name, &token.UserID, &token.Token, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &token, nil
}

// FindEternalToken looks up a stored token by its opaque value.
func (r *PGRepository) FindEternalToken(ctx context.Context, token string) (*EternalToken, error) {
	return scanEternal(r.pool.QueryRow(ctx,
		`SELECT `+eternalColumns+` FROM eternal_tokens WHERE token = $1`, token))
}

// GetEternalToken fetches a stored token by id.
func (r *PGRepository) GetEternalToken(ctx context.Context, id int64) (*EternalToken, error) {
	return scanEternal(r.pool.QueryRow(ctx,
		`SELECT `+eternalColumns+` FROM eternal_tokens WHERE id = $1`, id))
}

// ListEternalTokens returns the stored tokens owned by an actor.
func (r *PGRepository) ListEternalTokens(ctx context.Context, userID int64) ([]EternalToken, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+eternalColumns+` FROM eternal_tokens WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []EternalToken
	for rows.Next() {
		var token EternalToken
		if err := rows.Scan(&token.ID, &token.Name, &token.UserID, &token.Token, &token.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, token)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateEternalToken stores a new token and returns its id.
func (r *PGRepository) CreateEternalToken(ctx context.Context, token *EternalToken) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO eternal_tokens (name, user_id, token) VALUES ($1, $2, $3) RETURNING id`,
		token.Name, token.UserID, token.Token).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteEternalToken revokes a stored token.
func (r *PGRepository) DeleteEternalToken(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM eternal_tokens WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
