package permissions

// Action is a requested operation on an item.
type Action string

// Actions gating resource operations.
const (
	ActionCreate    Action = "create"
	ActionRead      Action = "read"
	ActionEdit      Action = "edit"
	ActionEliminate Action = "eliminate"
)

// Valid reports whether the action is one of the four known operations.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionEdit, ActionEliminate:
		return true
	}
	return false
}

// Field returns the rule field the action is evaluated against. Creation is
// gated by the read field at a higher threshold; the schema carries no
// dedicated create column.
func (a Action) Field() Action {
	if a == ActionCreate {
		return ActionRead
	}
	return a
}

// Threshold returns the minimum field value that grants the action.
func (a Action) Threshold() int {
	if a == ActionCreate {
		return 5
	}
	return 1
}

// Rule is a scoped grant or deny of actions, targeting exactly one of a user
// or a rank, on a whole model or a single item, at a priority level. A nil
// action field means the rule does not speak to that action; an explicit 0 is
// a deny that can override lower-priority allows.
type Rule struct {
	ID        int64  `json:"id"`
	UserID    *int64 `json:"user"`
	Rank      *int   `json:"rank"`
	ItemID    *int64 `json:"item_id"`
	Model     string `json:"model"`
	Level     int    `json:"level"`
	Read      *int   `json:"read"`
	Edit      *int   `json:"edit"`
	Eliminate *int   `json:"eliminate"`
}

// FieldValue returns the rule field backing the given (already normalized)
// action, or nil when the rule does not speak to it.
func (r *Rule) FieldValue(field Action) *int {
	switch field {
	case ActionRead:
		return r.Read
	case ActionEdit:
		return r.Edit
	case ActionEliminate:
		return r.Eliminate
	}
	return nil
}

// Item identifies the target of a permission decision: a model name and, for
// existing rows, the item id. ID zero means the item does not exist yet, so
// only model-wide rules can apply.
type Item struct {
	Model string
	ID    int64
}

// Subject is the acting identity a permission decision is made for.
type Subject interface {
	SubjectID() int64
	SubjectRank() int
}
