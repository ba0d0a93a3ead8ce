package permissions

import (
	"context"
	"fmt"
)

// RuleFinder resolves the single best applicable rule for a decision. A nil
// rule with a nil error means no rule applies; an error is a store failure
// and must never be collapsed into a deny.
type RuleFinder interface {
	FindBestRule(ctx context.Context, actorID int64, actorRank int, model string, itemID int64, field Action) (*Rule, error)
}

// Engine decides whether an actor may perform an action on an item. It is a
// pure decision function apart from the single rule-store read.
type Engine struct {
	rules RuleFinder
}

// NewEngine constructs an Engine over the given rule source.
func NewEngine(rules RuleFinder) *Engine {
	return &Engine{rules: rules}
}

// AdminRank is the rank that passes every check without a rule lookup.
const AdminRank = 10

// Can reports whether the subject may perform action on item.
//
// Administrators (rank 10) pass unconditionally. Otherwise the single
// highest-priority applicable rule decides: no rule means deny, and the
// resolved field value must meet the action's threshold (5 for create, which
// is evaluated against the read field, 1 for everything else). A malformed
// item or action is a contract violation, not a deny.
func (e *Engine) Can(ctx context.Context, subject Subject, action Action, item Item) (bool, error) {
	if subject == nil {
		return false, fmt.Errorf("permissions: nil subject")
	}
	if item.Model == "" {
		return false, fmt.Errorf("permissions: item has no model name")
	}
	if !action.Valid() {
		return false, fmt.Errorf("permissions: unknown action %q", action)
	}
	if subject.SubjectRank() == AdminRank {
		return true, nil
	}

	field := action.Field()
	rule, err := e.rules.FindBestRule(ctx, subject.SubjectID(), subject.SubjectRank(), item.Model, item.ID, field)
	if err != nil {
		return false, fmt.Errorf("permissions: rule lookup: %w", err)
	}
	if rule == nil {
		return false, nil
	}
	value := rule.FieldValue(field)
	if value == nil {
		// The finder contract excludes rules silent on the field.
		return false, fmt.Errorf("permissions: rule %d does not speak to %q", rule.ID, field)
	}
	return *value >= action.Threshold(), nil
}
