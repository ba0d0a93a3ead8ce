package permissions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulcan-api/vulcan-api/internal/shared"
)

type mockRuleRepo struct {
	memoryRules
	nextID int64
}

func (m *mockRuleRepo) Create(ctx context.Context, rule *Rule) (int64, error) {
	m.nextID++
	rule.ID = m.nextID
	m.rules = append(m.rules, *rule)
	return m.nextID, nil
}

func (m *mockRuleRepo) GetByID(ctx context.Context, id int64) (*Rule, error) {
	for _, r := range m.rules {
		if r.ID == id {
			rule := r
			return &rule, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRuleRepo) List(ctx context.Context) ([]Rule, error) {
	return m.rules, nil
}

func (m *mockRuleRepo) Update(ctx context.Context, rule *Rule) error {
	for i, r := range m.rules {
		if r.ID == rule.ID {
			m.rules[i] = *rule
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *mockRuleRepo) Delete(ctx context.Context, id int64) error {
	for i, r := range m.rules {
		if r.ID == id {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func TestRuleCreateRequiresExactlyOneTarget(t *testing.T) {
	service := NewService(&mockRuleRepo{})

	_, err := service.Create(context.Background(), RuleInput{
		Model: "contacts", Read: intp(1),
	})
	require.Error(t, err, "no target at all")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = service.Create(context.Background(), RuleInput{
		UserID: int64p(1), Rank: intp(2), Model: "contacts", Read: intp(1),
	})
	require.Error(t, err, "both targets")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	rule, err := service.Create(context.Background(), RuleInput{
		UserID: int64p(1), Model: "contacts", Read: intp(1),
	})
	require.NoError(t, err)
	assert.NotZero(t, rule.ID)
}

func TestRuleCreateRequiresAtLeastOneAction(t *testing.T) {
	service := NewService(&mockRuleRepo{})

	_, err := service.Create(context.Background(), RuleInput{
		UserID: int64p(1), Model: "contacts",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestRuleCreateRejectsMissingModel(t *testing.T) {
	service := NewService(&mockRuleRepo{})

	_, err := service.Create(context.Background(), RuleInput{
		UserID: int64p(1), Read: intp(1),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestRuleUpdateReplacesRule(t *testing.T) {
	repo := &mockRuleRepo{}
	service := NewService(repo)

	created, err := service.Create(context.Background(), RuleInput{
		UserID: int64p(1), Model: "contacts", Read: intp(1),
	})
	require.NoError(t, err)

	updated, err := service.Update(context.Background(), created.ID, RuleInput{
		Rank: intp(3), Model: "contacts", Level: 2, Edit: intp(1),
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Nil(t, updated.UserID)
	require.NotNil(t, updated.Rank)
	assert.Equal(t, 3, *updated.Rank)

	stored, err := service.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Read, "replacement does not merge with the old rule")
	require.NotNil(t, stored.Edit)
}

func TestRuleDeleteMissingRule(t *testing.T) {
	service := NewService(&mockRuleRepo{})

	err := service.Delete(context.Background(), 42)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
