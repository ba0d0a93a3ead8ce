package actors

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vulcan-api/vulcan-api/internal/permissions"
	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// ModelName is the rule-store model name guarding actor resources.
const ModelName = "users"

// actorView is the wire representation; the stored hash is never serialized.
type actorView struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Rank    int    `json:"rank"`
	Enabled bool   `json:"enabled"`
}

func viewOf(actor *Actor) actorView {
	return actorView{
		ID:      actor.ID,
		Name:    actor.Name,
		Email:   actor.Email,
		Rank:    actor.Rank,
		Enabled: actor.Enabled,
	}
}

// Handler wires HTTP endpoints for actor management.
type Handler struct {
	logger  *slog.Logger
	service *Service
	engine  *permissions.Engine
	audit   *shared.AuditLogger
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, engine *permissions.Engine, audit *shared.AuditLogger) *Handler {
	return &Handler{logger: logger, service: service, engine: engine, audit: audit}
}

// MountRoutes registers actor routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.remove)
}

func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request) *shared.Actor {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		shared.RespondError(w, h.logger, shared.ErrAuthenticationRequired)
	}
	return actor
}

func (h *Handler) can(w http.ResponseWriter, r *http.Request, caller *shared.Actor, action permissions.Action, itemID int64) bool {
	allowed, err := h.engine.Can(r.Context(), caller, action, permissions.Item{Model: ModelName, ID: itemID})
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return false
	}
	if !allowed {
		shared.RespondError(w, h.logger, shared.ErrPermissionDenied)
		return false
	}
	return true
}

func (h *Handler) record(r *http.Request, caller *shared.Actor, action string, itemID int64, allowed bool) {
	err := h.audit.Record(r.Context(), shared.AuditEntry{
		ActorID: caller.ID,
		Action:  action,
		Model:   ModelName,
		ItemID:  itemID,
		Allowed: allowed,
	})
	if err != nil && h.logger != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}

// list returns the actors the caller may read, checked item by item.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller := h.requireActor(w, r)
	if caller == nil {
		return
	}
	all, err := h.service.List(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	visible := make([]actorView, 0, len(all))
	for i := range all {
		allowed, err := h.engine.Can(r.Context(), caller, permissions.ActionRead,
			permissions.Item{Model: ModelName, ID: all[i].ID})
		if err != nil {
			shared.RespondError(w, h.logger, err)
			return
		}
		if allowed {
			visible = append(visible, viewOf(&all[i]))
		}
	}
	if len(visible) == 0 {
		shared.RespondJSON(w, http.StatusNoContent, nil)
		return
	}
	shared.RespondJSON(w, http.StatusOK, visible)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller := h.requireActor(w, r)
	if caller == nil {
		return
	}
	if !h.can(w, r, caller, permissions.ActionCreate, 0) {
		return
	}
	var input CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		shared.RespondError(w, h.logger, shared.Invalidf("malformed body"))
		return
	}
	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.record(r, caller, "create", created.ID, true)
	shared.RespondJSON(w, http.StatusCreated, viewOf(created))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	caller := h.requireActor(w, r)
	if caller == nil {
		return
	}
	id, err := pathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	actor, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if !h.can(w, r, caller, permissions.ActionRead, id) {
		return
	}
	shared.RespondJSON(w, http.StatusOK, viewOf(actor))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	caller := h.requireActor(w, r)
	if caller == nil {
		return
	}
	id, err := pathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if _, err := h.service.Get(r.Context(), id); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if !h.can(w, r, caller, permissions.ActionEdit, id) {
		return
	}
	var input UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		shared.RespondError(w, h.logger, shared.Invalidf("malformed body"))
		return
	}
	updated, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.record(r, caller, "edit", id, true)
	shared.RespondJSON(w, http.StatusOK, viewOf(updated))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	caller := h.requireActor(w, r)
	if caller == nil {
		return
	}
	id, err := pathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if _, err := h.service.Get(r.Context(), id); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if !h.can(w, r, caller, permissions.ActionEliminate, id) {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.record(r, caller, "eliminate", id, true)
	shared.RespondJSON(w, http.StatusNoContent, nil)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Invalidf("invalid id")
	}
	return id, nil
}
