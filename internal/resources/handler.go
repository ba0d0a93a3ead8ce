package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vulcan-api/vulcan-api/internal/permissions"
	"github.com/vulcan-api/vulcan-api/internal/schema"
	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// Handler serves the generated CRUD resources of every registered type. The
// route set is generic; the registry decides at request time whether a type
// name resolves.
type Handler struct {
	logger   *slog.Logger
	registry *schema.Registry
	store    Store
	engine   *permissions.Engine
	audit    *shared.AuditLogger
}

// NewHandler constructs a Handler instance. The engine passed here serves
// read decisions; mutations rebuild the decision inside their transaction.
func NewHandler(logger *slog.Logger, registry *schema.Registry, store Store, engine *permissions.Engine, audit *shared.AuditLogger) *Handler {
	return &Handler{logger: logger, registry: registry, store: store, engine: engine, audit: audit}
}

// MountRoutes registers the dynamic resource routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/{typeName}", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (schema.TypeDef, *shared.Actor, bool) {
	def, ok := h.registry.Lookup(chi.URLParam(r, "typeName"))
	if !ok {
		shared.RespondError(w, h.logger, shared.ErrNotFound)
		return schema.TypeDef{}, nil, false
	}
	caller := shared.ActorFromContext(r.Context())
	if caller == nil {
		shared.RespondError(w, h.logger, shared.ErrAuthenticationRequired)
		return schema.TypeDef{}, nil, false
	}
	return def, caller, true
}

func (h *Handler) record(r *http.Request, caller *shared.Actor, action, model string, itemID int64, allowed bool) {
	err := h.audit.Record(r.Context(), shared.AuditEntry{
		ActorID: caller.ID,
		Action:  action,
		Model:   model,
		ItemID:  itemID,
		Allowed: allowed,
	})
	if err != nil && h.logger != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}

// list returns one page of items, filtered to those the caller may read.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	def, caller, ok := h.resolve(w, r)
	if !ok {
		return
	}
	q, err := ParseQuery(def, r.URL.Query())
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	rows, count, err := h.store.Select(r.Context(), def, q)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	visible := make([]Row, 0, len(rows))
	for _, row := range rows {
		id, _ := row["id"].(int64)
		allowed, err := h.engine.Can(r.Context(), caller, permissions.ActionRead,
			permissions.Item{Model: def.Name, ID: id})
		if err != nil {
			shared.RespondError(w, h.logger, err)
			return
		}
		if allowed {
			visible = append(visible, row)
		}
	}
	if len(visible) == 0 {
		shared.RespondJSON(w, http.StatusNoContent, nil)
		return
	}
	if count > int64(q.Items) {
		writeLinkHeaders(w, r, count, q)
	}
	shared.RespondJSON(w, http.StatusOK,
		SirenCollection(visible, r.URL.Path, q.Page, LastPage(count, q.Items)))
}

func writeLinkHeaders(w http.ResponseWriter, r *http.Request, count int64, q Query) {
	base := r.URL.Path + "?page=%d&items=" + strconv.Itoa(q.Items)
	last := LastPage(count, q.Items)
	if q.Page > 1 {
		w.Header().Add("Link", fmt.Sprintf(`<`+base+`>; rel="prev"`, q.Page-1))
	}
	if q.Page < last {
		w.Header().Add("Link", fmt.Sprintf(`<`+base+`>; rel="next"`, q.Page+1))
		w.Header().Add("Link", fmt.Sprintf(`<`+base+`>; rel="last"`, last))
	}
}

// create inserts a new item. The permission decision and the insert run in
// one transaction; the owner defaults to the caller.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	def, caller, ok := h.resolve(w, r)
	if !ok {
		return
	}
	row, err := h.decodeRow(r, def)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if _, ok := row["owner"]; !ok {
		row["owner"] = caller.ID
	}

	var id int64
	err = h.store.WithTx(r.Context(), func(ctx context.Context, tx TxStore) error {
		engine := permissions.NewEngine(tx.Rules())
		allowed, err := engine.Can(ctx, caller, permissions.ActionCreate,
			permissions.Item{Model: def.Name})
		if err != nil {
			return err
		}
		if !allowed {
			return shared.ErrPermissionDenied
		}
		id, err = tx.Insert(ctx, def, row)
		return err
	})
	if err != nil {
		h.record(r, caller, "create", def.Name, 0, false)
		shared.RespondError(w, h.logger, err)
		return
	}
	h.record(r, caller, "create", def.Name, id, true)

	created, err := h.store.Get(r.Context(), def, id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("%s/%d", r.URL.Path, id))
	shared.RespondJSON(w, http.StatusCreated, SirenEntity(created, r.URL.Path, id))
}

// get fetches one item. Existence is reported before the permission
// decision.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	def, caller, ok := h.resolve(w, r)
	if !ok {
		return
	}
	id, err := itemPathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	row, err := h.store.Get(r.Context(), def, id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	allowed, err := h.engine.Can(r.Context(), caller, permissions.ActionRead,
		permissions.Item{Model: def.Name, ID: id})
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if !allowed {
		shared.RespondError(w, h.logger, shared.ErrPermissionDenied)
		return
	}
	basePath := strings.TrimSuffix(r.URL.Path, "/"+strconv.FormatInt(id, 10))
	shared.RespondJSON(w, http.StatusOK, SirenEntity(row, basePath, id))
}

// update applies a partial mutation inside one transaction with its
// permission decision.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	def, caller, ok := h.resolve(w, r)
	if !ok {
		return
	}
	id, err := itemPathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	row, err := h.decodeRow(r, def)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	err = h.store.WithTx(r.Context(), func(ctx context.Context, tx TxStore) error {
		if _, err := tx.Get(ctx, def, id); err != nil {
			return err
		}
		engine := permissions.NewEngine(tx.Rules())
		allowed, err := engine.Can(ctx, caller, permissions.ActionEdit,
			permissions.Item{Model: def.Name, ID: id})
		if err != nil {
			return err
		}
		if !allowed {
			return shared.ErrPermissionDenied
		}
		return tx.Update(ctx, def, id, row)
	})
	if err != nil {
		h.record(r, caller, "edit", def.Name, id, false)
		shared.RespondError(w, h.logger, err)
		return
	}
	h.record(r, caller, "edit", def.Name, id, true)

	updated, err := h.store.Get(r.Context(), def, id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	basePath := strings.TrimSuffix(r.URL.Path, "/"+strconv.FormatInt(id, 10))
	shared.RespondJSON(w, http.StatusOK, SirenEntity(updated, basePath, id))
}

// remove deletes one item inside one transaction with its permission
// decision.
func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	def, caller, ok := h.resolve(w, r)
	if !ok {
		return
	}
	id, err := itemPathID(r)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	err = h.store.WithTx(r.Context(), func(ctx context.Context, tx TxStore) error {
		if _, err := tx.Get(ctx, def, id); err != nil {
			return err
		}
		engine := permissions.NewEngine(tx.Rules())
		allowed, err := engine.Can(ctx, caller, permissions.ActionEliminate,
			permissions.Item{Model: def.Name, ID: id})
		if err != nil {
			return err
		}
		if !allowed {
			return shared.ErrPermissionDenied
		}
		return tx.Delete(ctx, def, id)
	})
	if err != nil {
		h.record(r, caller, "eliminate", def.Name, id, false)
		shared.RespondError(w, h.logger, err)
		return
	}
	h.record(r, caller, "eliminate", def.Name, id, true)
	shared.RespondJSON(w, http.StatusNoContent, nil)
}

// decodeRow parses a JSON body into typed column values per the descriptor.
// Unknown columns are rejected; the per-field type tag decides the coercion,
// no reflection against the storage layer.
func (h *Handler) decodeRow(r *http.Request, def schema.TypeDef) (Row, error) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, shared.Invalidf("malformed body")
	}
	row := make(Row, len(body))
	for key, raw := range body {
		if key == "id" {
			return nil, shared.Invalidf("id cannot be set")
		}
		if key == "owner" {
			owner, err := coerceInt(raw)
			if err != nil {
				return nil, shared.Invalidf("owner: %v", err)
			}
			row["owner"] = owner
			continue
		}
		field, ok := def.Field(key)
		if !ok {
			return nil, shared.Invalidf("unknown column %q", key)
		}
		value, err := coerceValue(field, raw)
		if err != nil {
			return nil, shared.Invalidf("%s: %v", key, err)
		}
		row[key] = value
	}
	return row, nil
}

func coerceValue(field schema.FieldDef, raw any) (any, error) {
	if raw == nil {
		if !field.Nullable {
			return nil, fmt.Errorf("column is not nullable")
		}
		return nil, nil
	}
	switch field.Type {
	case schema.TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string")
		}
		return s, nil
	case schema.TypeInt, schema.TypeForeignKey:
		return coerceInt(raw)
	case schema.TypeFloat:
		f, ok := raw.(float64)
		if !ok {
			return nil, fmt.Errorf("expected number")
		}
		return f, nil
	case schema.TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean")
		}
		return b, nil
	case schema.TypeDate:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected RFC 3339 timestamp")
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("expected RFC 3339 timestamp")
		}
		return t, nil
	}
	return nil, fmt.Errorf("unsupported column type")
}

func coerceInt(raw any) (int64, error) {
	f, ok := raw.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, fmt.Errorf("expected integer")
	}
	return int64(f), nil
}

func itemPathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Invalidf("invalid id")
	}
	return id, nil
}
