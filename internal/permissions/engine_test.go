package permissions

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// ============================================================================
// MOCK RULE FINDER
// ============================================================================

type testSubject struct {
	id   int64
	rank int
}

func (s testSubject) SubjectID() int64 { return s.id }
func (s testSubject) SubjectRank() int { return s.rank }

type memoryRules struct {
	rules []Rule

	findError error
	calls     int
}

// FindBestRule mirrors the store ordering: level first, item-scoped before
// model-wide, user-targeted before rank-targeted.
func (m *memoryRules) FindBestRule(ctx context.Context, actorID int64, actorRank int, model string, itemID int64, field Action) (*Rule, error) {
	m.calls++
	if m.findError != nil {
		return nil, m.findError
	}
	var candidates []Rule
	for _, r := range m.rules {
		if r.Model != model {
			continue
		}
		targeted := (r.UserID != nil && *r.UserID == actorID) ||
			(r.Rank != nil && *r.Rank == actorRank)
		if !targeted {
			continue
		}
		if r.ItemID != nil && *r.ItemID != itemID {
			continue
		}
		if r.FieldValue(field) == nil {
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		if (a.ItemID != nil) != (b.ItemID != nil) {
			return a.ItemID != nil
		}
		if (a.Rank == nil) != (b.Rank == nil) {
			return a.Rank == nil
		}
		if a.Rank != nil && b.Rank != nil && *a.Rank != *b.Rank {
			return *a.Rank > *b.Rank
		}
		return false
	})
	best := candidates[0]
	return &best, nil
}

func intp(v int) *int       { return &v }
func int64p(v int64) *int64 { return &v }

// ============================================================================
// DECISIONS
// ============================================================================

func TestCanAdminBypassesRules(t *testing.T) {
	rules := &memoryRules{}
	engine := NewEngine(rules)

	for _, action := range []Action{ActionCreate, ActionRead, ActionEdit, ActionEliminate} {
		allowed, err := engine.Can(context.Background(), testSubject{id: 1, rank: AdminRank}, action, Item{Model: "contacts", ID: 3})
		require.NoError(t, err)
		assert.True(t, allowed, "admin should pass %s", action)
	}
	assert.Zero(t, rules.calls, "admin decisions must not hit the rule store")
}

func TestCanDeniesWithoutRules(t *testing.T) {
	engine := NewEngine(&memoryRules{})

	allowed, err := engine.Can(context.Background(), testSubject{id: 1, rank: 1}, ActionRead, Item{Model: "contacts", ID: 3})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCanModelWideGrant(t *testing.T) {
	rules := &memoryRules{rules: []Rule{
		{ID: 1, UserID: int64p(1), Model: "contacts", Level: 1, Read: intp(1)},
	}}
	engine := NewEngine(rules)
	subject := testSubject{id: 1, rank: 1}

	allowed, err := engine.Can(context.Background(), subject, ActionRead, Item{Model: "contacts", ID: 3})
	require.NoError(t, err)
	assert.True(t, allowed)

	// The rule is silent on edit, so edit stays denied.
	allowed, err = engine.Can(context.Background(), subject, ActionEdit, Item{Model: "contacts", ID: 3})
	require.NoError(t, err)
	assert.False(t, allowed)

	// Other models are untouched.
	allowed, err = engine.Can(context.Background(), subject, ActionRead, Item{Model: "invoices", ID: 3})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCanHigherLevelDenyOverridesGrant(t *testing.T) {
	rules := &memoryRules{rules: []Rule{
		{ID: 1, Rank: intp(2), Model: "contacts", Level: 2, Read: intp(1)},
		{ID: 2, UserID: int64p(1), Model: "contacts", Level: 3, Read: intp(0)},
	}}
	engine := NewEngine(rules)

	allowed, err := engine.Can(context.Background(), testSubject{id: 1, rank: 2}, ActionRead, Item{Model: "contacts", ID: 3})
	require.NoError(t, err)
	assert.False(t, allowed, "explicit zero at a higher level is a deny")
}

func TestCanItemScopedRuleOverridesModelWide(t *testing.T) {
	rules := &memoryRules{rules: []Rule{
		{ID: 1, UserID: int64p(1), Model: "contacts", Level: 1, Read: intp(1)},
		{ID: 2, UserID: int64p(1), Model: "contacts", ItemID: int64p(7), Level: 1, Read: intp(0)},
	}}
	engine := NewEngine(rules)
	subject := testSubject{id: 1, rank: 1}

	allowed, err := engine.Can(context.Background(), subject, ActionRead, Item{Model: "contacts", ID: 7})
	require.NoError(t, err)
	assert.False(t, allowed, "item rule wins on its own item")

	allowed, err = engine.Can(context.Background(), subject, ActionRead, Item{Model: "contacts", ID: 8})
	require.NoError(t, err)
	assert.True(t, allowed, "item rule has no reach beyond its item")
}

func TestCanUserRuleBeatsRankRuleAtSameLevel(t *testing.T) {
	rules := &memoryRules{rules: []Rule{
		{ID: 1, Rank: intp(2), Model: "contacts", Level: 1, Read: intp(1)},
		{ID: 2, UserID: int64p(1), Model: "contacts", Level: 1, Read: intp(0)},
	}}
	engine := NewEngine(rules)

	allowed, err := engine.Can(context.Background(), testSubject{id: 1, rank: 2}, ActionRead, Item{Model: "contacts", ID: 3})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCanRankScopedGrantCoversMatchingRankOnly(t *testing.T) {
	rules := &memoryRules{}
	engine := NewEngine(rules)
	clerk := &shared.Actor{ID: 7, Name: "joe", Rank: 1}

	allowed, err := engine.Can(context.Background(), clerk, ActionRead, Item{Model: "widgets", ID: 3})
	require.NoError(t, err)
	assert.False(t, allowed, "empty store denies")

	rules.rules = append(rules.rules, Rule{ID: 1, Rank: intp(1), Model: "widgets", Level: 1, Read: intp(1)})

	allowed, err = engine.Can(context.Background(), clerk, ActionRead, Item{Model: "widgets", ID: 3})
	require.NoError(t, err)
	assert.True(t, allowed, "a rank rule covers every actor of that rank")

	other := &shared.Actor{ID: 8, Name: "ann", Rank: 2}
	allowed, err = engine.Can(context.Background(), other, ActionRead, Item{Model: "widgets", ID: 3})
	require.NoError(t, err)
	assert.False(t, allowed, "a different rank stays denied")
}

func TestCanCreateRequiresHigherReadValue(t *testing.T) {
	rules := &memoryRules{rules: []Rule{
		{ID: 1, UserID: int64p(1), Model: "contacts", Level: 1, Read: intp(3)},
	}}
	engine := NewEngine(rules)
	subject := testSubject{id: 1, rank: 1}

	allowed, err := engine.Can(context.Background(), subject, ActionRead, Item{Model: "contacts", ID: 3})
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = engine.Can(context.Background(), subject, ActionCreate, Item{Model: "contacts"})
	require.NoError(t, err)
	assert.False(t, allowed, "read 3 is below the create threshold")

	rules.rules[0].Read = intp(5)
	allowed, err = engine.Can(context.Background(), subject, ActionCreate, Item{Model: "contacts"})
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCanCreateIgnoresItemScopedRules(t *testing.T) {
	rules := &memoryRules{rules: []Rule{
		{ID: 1, UserID: int64p(1), Model: "contacts", ItemID: int64p(7), Level: 1, Read: intp(9)},
	}}
	engine := NewEngine(rules)

	allowed, err := engine.Can(context.Background(), testSubject{id: 1, rank: 1}, ActionCreate, Item{Model: "contacts"})
	require.NoError(t, err)
	assert.False(t, allowed, "nothing model-wide speaks to a not-yet-existing item")
}

// ============================================================================
// FAILURE PATHS
// ============================================================================

func TestCanStoreFailureIsNotADeny(t *testing.T) {
	storeErr := errors.New("connection reset")
	engine := NewEngine(&memoryRules{findError: storeErr})

	allowed, err := engine.Can(context.Background(), testSubject{id: 1, rank: 1}, ActionRead, Item{Model: "contacts", ID: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.False(t, allowed)
}

func TestCanRejectsMalformedInput(t *testing.T) {
	engine := NewEngine(&memoryRules{})
	subject := testSubject{id: 1, rank: 1}

	_, err := engine.Can(context.Background(), nil, ActionRead, Item{Model: "contacts"})
	require.Error(t, err)

	_, err = engine.Can(context.Background(), subject, ActionRead, Item{})
	require.Error(t, err)

	_, err = engine.Can(context.Background(), subject, Action("publish"), Item{Model: "contacts"})
	require.Error(t, err)
}
