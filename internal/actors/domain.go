package actors

import "time"

// AdminRank is the rank granting unconditional access to every operation.
const AdminRank = 10

// Actor represents an authenticated identity with a privilege rank.
type Actor struct {
	ID        int64
	Name      string
	Email     string
	Password  string // bcrypt hash, never plaintext
	Rank      int
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the actor bypasses permission evaluation.
func (a *Actor) IsAdmin() bool {
	return a.Rank == AdminRank
}

// SubjectID implements permissions.Subject.
func (a *Actor) SubjectID() int64 {
	return a.ID
}

// SubjectRank implements permissions.Subject.
func (a *Actor) SubjectRank() int {
	return a.Rank
}
