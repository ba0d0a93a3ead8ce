package auth

import (
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vulcan-api/vulcan-api/internal/actors"
	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// Handler wires the token endpoints.
type Handler struct {
	logger   *slog.Logger
	repo     Repository
	issuer   *TokenIssuer
	validate *validator.Validate
	random   io.Reader
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, repo Repository, issuer *TokenIssuer) *Handler {
	return &Handler{
		logger:   logger,
		repo:     repo,
		issuer:   issuer,
		validate: validator.New(),
		random:   rand.Reader,
	}
}

// MountTokenRoutes registers the unauthenticated token-issuing endpoint.
func (h *Handler) MountTokenRoutes(r chi.Router) {
	r.Post("/", h.issueToken)
}

// MountEternalRoutes registers the authenticated eternal-token management
// endpoints.
func (h *Handler) MountEternalRoutes(r chi.Router) {
	r.Get("/", h.listEternal)
	r.Delete("/{id}", h.revokeEternal)
}

type tokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Eternal  bool   `json:"eternal"`
	Name     string `json:"name"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// issueToken exchanges a username/password pair for a signed token. With
// eternal set, the token value is stored server-side and the returned
// credential stays valid until revoked.
func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeTokenRequest(r, &req); err != nil {
		shared.RespondError(w, h.logger, shared.Invalidf("a required parameter is missing"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, h.logger, shared.Invalidf("a required parameter is missing"))
		return
	}

	actor, err := h.authenticate(r, req.Username, req.Password)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}

	if req.Eternal {
		h.issueEternal(w, r, actor, req.Name)
		return
	}

	token, err := h.issuer.IssueUserToken(actor.Name)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) authenticate(r *http.Request, username, password string) (*actors.Actor, error) {
	actor, err := h.repo.FindActorByName(r.Context(), username)
	if err != nil {
		return nil, maskNotFound(err)
	}
	if !actor.Enabled || !actors.ComparePassword(password, actor.Password) {
		return nil, shared.ErrInvalidCredentials
	}
	return actor, nil
}

func (h *Handler) issueEternal(w http.ResponseWriter, r *http.Request, actor *actors.Actor, name string) {
	value, err := GenerateEternalToken(h.random)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	stored := &EternalToken{Name: name, UserID: actor.ID, Token: value}
	if _, err := h.repo.CreateEternalToken(r.Context(), stored); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	signed, err := h.issuer.IssueEternalToken(value)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, tokenResponse{Token: signed})
}

// decodeTokenRequest accepts both JSON bodies and form posts.
func decodeTokenRequest(r *http.Request, req *tokenRequest) error {
	contentType := r.Header.Get("Content-Type")
	if contentType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return err
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
		req.Eternal = r.PostFormValue("eternal") == "1"
		req.Name = r.PostFormValue("name")
		return nil
	}
	return json.NewDecoder(r.Body).Decode(req)
}

// listEternal returns the caller's stored tokens. Token values are never
// echoed back.
func (h *Handler) listEternal(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		shared.RespondError(w, h.logger, shared.ErrAuthenticationRequired)
		return
	}
	tokens, err := h.repo.ListEternalTokens(r.Context(), actor.ID)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, tokens)
}

// revokeEternal deletes a stored token. Only the owner or an administrator
// may revoke.
func (h *Handler) revokeEternal(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		shared.RespondError(w, h.logger, shared.ErrAuthenticationRequired)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, h.logger, shared.Invalidf("invalid token id"))
		return
	}
	stored, err := h.repo.GetEternalToken(r.Context(), id)
	if err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	if stored.UserID != actor.ID && actor.Rank != actors.AdminRank {
		shared.RespondError(w, h.logger, shared.ErrPermissionDenied)
		return
	}
	if err := h.repo.DeleteEternalToken(r.Context(), id); err != nil {
		shared.RespondError(w, h.logger, err)
		return
	}
	shared.RespondJSON(w, http.StatusNoContent, nil)
}
