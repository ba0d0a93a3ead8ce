package schema

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vulcan-api/vulcan-api/internal/permissions"
	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// ModelName is the rule-store model name guarding type definitions.
const ModelName = "types"

// Handler wires HTTP endpoints for type management.
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

// MountRoutes registers type routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/enable", h.enable)
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

// typeInput is the creation payload; field types arrive as their stored
// names.
type typeInput struct {
	Name    string     `json:"name"`
	Enabled bool       `json:"enabled"`
	Fields  []FieldDef `json:"fields"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller := h.requireActor(w, r)
	if caller == nil {
		return
	}
	defs, err := h.service.ListTypes(r.Context())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	visible := make([]TypeDef, 0, len(defs))
	for _, def := range defs {
		allowed, err := h.engine.Can(r.Context(), caller, permissions.ActionRead,
			permissions.Item{Model: ModelName, ID: def.ID})
		if err != nil {
			shared.RespondError(w, h.logger, err)
			return
		}
		if allowed {
			visible = append(visible, def)
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
	var input typeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		shared.RespondError(w, h.logger, shared.Invalidf("malformed body"))
		return
	}
	def := TypeDef{Name: input.Name, Enabled: input.Enabled, Fields: input.Fields}
	for i := range def.Fields {
		columnType, err := ParseColumnType(def.Fields[i].TypeName)
		if err != nil {
			shared.RespondError(w, h.logger, shared.Invalidf("%v", err))
			return
		}
		def.Fields[i].Type = columnType
	}
	created, err := h.service.CreateType(r.Context(), def)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.record(r, caller, "create", created.ID)
	shared.RespondJSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	caller := h.requireActor(w, r)
	if caller == nil {
		return
	}
	id, err := typePathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	def, err := h.service.GetType(r.Context(), id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if !h.can(w, r, caller, permissions.ActionRead, id) {
		return
	}
	shared.RespondJSON(w, http.StatusOK, def)
}

func (h *Handler) enable(w http.ResponseWriter, r *http.Request) {
	caller := h.requireActor(w, r)
	if caller == nil {
		return
	}
	id, err := typePathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if _, err := h.service.GetType(r.Context(), id); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if !h.can(w, r, caller, permissions.ActionEdit, id) {
		return
	}
	def, err := h.service.EnableType(r.Context(), id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.record(r, caller, "edit", id)
	shared.RespondJSON(w, http.StatusOK, def)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	caller := h.requireActor(w, r)
	if caller == nil {
		return
	}
	id, err := typePathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if _, err := h.service.GetType(r.Context(), id); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if !h.can(w, r, caller, permissions.ActionEliminate, id) {
		return
	}
	if err := h.service.DeleteType(r.Context(), id); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	h.record(r, caller, "eliminate", id)
	shared.RespondJSON(w, http.StatusNoContent, nil)
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

func typePathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Invalidf("invalid id")
	}
	return id, nil
}
