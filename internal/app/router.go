package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vulcan-api/vulcan-api/internal/actors"
	"github.com/vulcan-api/vulcan-api/internal/auth"
	"github.com/vulcan-api/vulcan-api/internal/permissions"
	"github.com/vulcan-api/vulcan-api/internal/resources"
	"github.com/vulcan-api/vulcan-api/internal/schema"
	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Gate               *auth.Gate
	Registry           *schema.Registry
	AuthHandler        *auth.Handler
	ActorsHandler      *actors.Handler
	PermissionsHandler *permissions.Handler
	SchemaHandler      *schema.Handler
	ResourcesHandler   *resources.Handler
}

// NewRouter constructs the chi.Router with Vulcan defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		endpoints := []string{"/users", "/types", "/permissions", "/eternal-tokens", "/tokens"}
		for _, name := range params.Registry.Names() {
			endpoints = append(endpoints, "/"+name)
		}
		shared.RespondJSON(w, http.StatusOK, map[string]any{"endpoints": endpoints})
	})

	// Token issuing consumes credentials from the request body, so it sits
	// outside the authenticated group.
	r.Route("/tokens", func(r chi.Router) {
		params.AuthHandler.MountTokenRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(params.Gate, params.Logger))

		r.Route("/users", func(r chi.Router) {
			params.ActorsHandler.MountRoutes(r)
		})
		r.Route("/types", func(r chi.Router) {
			params.SchemaHandler.MountRoutes(r)
		})
		r.Route("/permissions", func(r chi.Router) {
			params.PermissionsHandler.MountRoutes(r)
		})
		r.Route("/eternal-tokens", func(r chi.Router) {
			params.AuthHandler.MountEternalRoutes(r)
		})

		// Generated resources resolve by name at request time; static routes
		// above take precedence over the wildcard.
		params.ResourcesHandler.MountRoutes(r)
	})

	return r
}
