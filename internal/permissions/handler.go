package permissions

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// ModelName is the rule-store model name guarding the rules themselves.
const ModelName = "access_rules"

// Handler wires HTTP endpoints for rule management. Access to rules is
// decided by the same engine the rules feed: without a grant on the
// access_rules model only administrators can manage them.
type Handler struct {
	logger  *slog.Logger
	service *Service
	engine  *Engine
	audit   *shared.AuditLogger
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, engine *Engine, audit *shared.AuditLogger) *Handler {
	return &Handler{logger: logger, service: service, engine: engine, audit: audit}
}

// MountRoutes registers rule routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
}

func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request) *shared.Actor {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		shared.RespondError(w, h.logger, shared.ErrAuthenticationRequired)
	}
	return actor
}

func (h *Handler) can(w http.ResponseWriter, r *http.Request, caller *shared.Actor, action Action, itemID int64) bool {
	allowed, err := h.engine.Can(r.Context(), caller, action, Item{Model: ModelName, ID: itemID})
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

func (h *Handler) record(r *http.Request, caller *shared.Actor, action string, itemID int64) {
	err := h.audit.Record(r.Context(), shared.AuditEntry{
		ActorID: caller.ID,
		Action:  action,
		Model:   ModelName,
		ItemID:  itemID,
		Allowed: true,
	})
	if err != nil && h.logger != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller := h.requireActor(w, r)
	if caller == nil {
		return
	}
	rules, err := h.service.List(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	visible := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		allowed, err := h.engine.Can(r.Context(), caller, ActionRead, Item{Model: ModelName, ID: rule.ID})
		if err != nil {
			shared.RespondError(w, h.logger, err)
			return
		}
		if allowed {
			visible = append(visible, rule)
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
	if !h.can(w, r, caller, ActionCreate, 0) {
		return
	}
	var input RuleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		shared.RespondError(w, h.logger, shared.Invalidf("malformed body"))
		return
	}
	rule, err := h.service.Create(r.Context(), input)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.record(r, caller, "create", rule.ID)
	shared.RespondJSON(w, http.StatusCreated, rule)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	caller := h.requireActor(w, r)
	if caller == nil {
		return
	}
	id, err := rulePathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	rule, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if !h.can(w, r, caller, ActionRead, id) {
		return
	}
	shared.RespondJSON(w, http.StatusOK, rule)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	caller := h.requireActor(w, r)
	if caller == nil {
		return
	}
	id, err := rulePathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if _, err := h.service.Get(r.Context(), id); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if !h.can(w, r, caller, ActionEdit, id) {
		return
	}
	var input RuleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		shared.RespondError(w, h.logger, shared.Invalidf("malformed body"))
		return
	}
	rule, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.record(r, caller, "edit", id)
	shared.RespondJSON(w, http.StatusOK, rule)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	caller := h.requireActor(w, r)
	if caller == nil {
		return
	}
	id, err := rulePathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if _, err := h.service.Get(r.Context(), id); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if !h.can(w, r, caller, ActionEliminate, id) {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.record(r, caller, "eliminate", id)
	shared.RespondJSON(w, http.StatusNoContent, nil)
}

func rulePathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Invalidf("invalid id")
	}
	return id, nil
}
