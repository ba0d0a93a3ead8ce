package permissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// Querier is the subset of pgx operations the repository needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so a repository can be scoped to a
// transaction when a decision and its write must share one boundary.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository defines persistence operations for access rules.
type Repository interface {
	RuleFinder
	Create(ctx context.Context, rule *Rule) (int64, error)
	GetByID(ctx context.Context, id int64) (*Rule, error)
	List(ctx context.Context) ([]Rule, error)
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(db Querier) *PGRepository {
	return &PGRepository{db: db}
}

const ruleColumns = `id, user_id, rank, item_id, model, level, "read", edit, eliminate`

// fieldColumn maps a normalized action to its column. The action value never
// reaches the SQL text directly.
func fieldColumn(field Action) (string, error) {
	switch field {
	case ActionRead:
		return `"read"`, nil
	case ActionEdit:
		return `edit`, nil
	case ActionEliminate:
		return `eliminate`, nil
	}
	return "", fmt.Errorf("permissions: no column for action %q", field)
}

// FindBestRule returns the single top-ranked rule applicable to the decision,
// or nil when no rule matches. Ordering: level descending, then item-scoped
// rules before model-wide ones, then user-scoped rules before rank-scoped
// ones (rank DESC places NULL ranks first).
func (r *PGRepository) FindBestRule(ctx context.Context, actorID int64, actorRank int, model string, itemID int64, field Action) (*Rule, error) {
	column, err := fieldColumn(field)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + ruleColumns + ` FROM access_rules
		WHERE (user_id = $1 OR rank = $2)
		  AND model = $3
		  AND (item_id IS NULL OR item_id = $4)
		  AND ` + column + ` IS NOT NULL
		ORDER BY level DESC, item_id ASC NULLS LAST, rank DESC NULLS FIRST
		LIMIT 1`
	rule, err := scanRule(r.db.QueryRow(ctx, query, actorID, actorRank, model, itemID))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rule, nil
}

func scanRule(row pgx.Row) (*Rule, error) {
	var rule Rule
	err := row.Scan(&rule.ID, &rule.UserID, &rule.Rank, &rule.ItemID,
		&rule.Model, &rule.Level, &rule.Read, &rule.Edit, &rule.Eliminate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// Create inserts a rule and returns its id.
func (r *PGRepository) Create(ctx context.Context, rule *Rule) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO access_rules (user_id, rank, item_id, model, level, "read", edit, eliminate)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		rule.UserID, rule.Rank, rule.ItemID, rule.Model, rule.Level,
		rule.Read, rule.Edit, rule.Eliminate).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetByID fetches a rule by id.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Rule, error) {
	return scanRule(r.db.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM access_rules WHERE id = $1`, id))
}

// List returns all rules ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]Rule, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+ruleColumns+` FROM access_rules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.Rank, &rule.ItemID,
			&rule.Model, &rule.Level, &rule.Read, &rule.Edit, &rule.Eliminate); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update persists every column of the rule.
func (r *PGRepository) Update(ctx context.Context, rule *Rule) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE access_rules SET user_id = $2, rank = $3, item_id = $4, model = $5,
		 level = $6, "read" = $7, edit = $8, eliminate = $9 WHERE id = $1`,
		rule.ID, rule.UserID, rule.Rank, rule.ItemID, rule.Model,
		rule.Level, rule.Read, rule.Edit, rule.Eliminate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a rule by id.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM access_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
