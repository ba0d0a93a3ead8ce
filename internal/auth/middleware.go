package auth

import (
	"log/slog"
	"net/http"

	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// Middleware resolves the Authorization header and stores the actor in the
// request context. Requests that do not resolve never reach the handler.
func Middleware(gate *Gate, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := gate.Resolve(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				shared.RespondError(w, logger, err)
				return
			}
			caller := &shared.Actor{ID: actor.ID, Name: actor.Name, Rank: actor.Rank}
			ctx := shared.ContextWithActor(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
