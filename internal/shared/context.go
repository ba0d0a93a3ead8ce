package shared

import "context"

// Actor is the resolved caller identity carried through the request context.
// It is the identity view the permission engine decides over; the full
// account record stays in its own package.
type Actor struct {
	ID   int64
	Name string
	Rank int
}

// SubjectID identifies the actor to the permission engine.
func (a *Actor) SubjectID() int64 {
	return a.ID
}

// SubjectRank reports the actor's privilege rank.
func (a *Actor) SubjectRank() int {
	return a.Rank
}

type actorContextKey struct{}

// ContextWithActor stores the resolved actor in context.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context, or nil.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}
