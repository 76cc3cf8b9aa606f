package invites

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/draftdeck/draftdeck/internal/access"
	"github.com/draftdeck/draftdeck/internal/api"
	"github.com/draftdeck/draftdeck/internal/directory"
	"github.com/draftdeck/draftdeck/internal/identity"
	"github.com/draftdeck/draftdeck/internal/permission"
	"github.com/draftdeck/draftdeck/internal/resource"
	"github.com/draftdeck/draftdeck/internal/store"
)

// Handler exposes the invitation lifecycle over HTTP.
type Handler struct {
	service *Service
	log     *slog.Logger
}

// NewHandler creates an invitation handler.
func NewHandler(service *Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Routes mounts the invitation endpoints on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.HandleCreate)
	r.Get("/resolve/{token}", h.HandleResolve)
	r.Get("/pending", h.HandleListPending)
	r.Get("/sent", h.HandleListSent)
	r.Post("/{invitationId}/accept", h.HandleAccept)
	r.Post("/{invitationId}/decline", h.HandleDecline)
}

// CreateRequest is the request body for creating an invitation.
type CreateRequest struct {
	DocumentID   string `json:"document_id,omitempty"`
	TeamID       string `json:"team_id,omitempty"`
	GameID       string `json:"game_id,omitempty"`
	InviteeEmail string `json:"invitee_email"`
	Level        string `json:"level"`
	CanReshare   bool   `json:"can_reshare,omitempty"`
	Message      string `json:"message,omitempty"`
}

// InvitationView is the full wire shape of an invitation, returned on
// authenticated endpoints. Token is only populated in the creation
// response.
type InvitationView struct {
	ID           string `json:"id"`
	Token        string `json:"token,omitempty"`
	TargetKind   string `json:"target_kind"`
	TargetID     string `json:"target_id"`
	InviterID    string `json:"inviter_id"`
	InviteeEmail string `json:"invitee_email"`
	Level        string `json:"level"`
	CanReshare   bool   `json:"can_reshare,omitempty"`
	Message      string `json:"message,omitempty"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	ExpiresAt    string `json:"expires_at"`
	RespondedAt  string `json:"responded_at,omitempty"`
}

// ResolveView is the wire shape returned to invitation-link holders.
// The endpoint is unauthenticated, so it carries only what the invitee
// needs to decide: what kind of grant at what level, and whether the
// window is still open. Resource ids, the inviter, and the invitee
// address stay server-side.
type ResolveView struct {
	ID         string `json:"id"`
	TargetKind string `json:"target_kind"`
	Level      string `json:"level"`
	Status     string `json:"status"`
	ExpiresAt  string `json:"expires_at"`
}

func resolveViewOf(inv *store.Invitation) ResolveView {
	return ResolveView{
		ID:         inv.ID,
		TargetKind: inv.TargetKind(),
		Level:      inv.Level,
		Status:     string(inv.Status),
		ExpiresAt:  inv.ExpiresAt.Format(time.RFC3339),
	}
}

func viewOf(inv *store.Invitation) InvitationView {
	v := InvitationView{
		ID:           inv.ID,
		TargetKind:   inv.TargetKind(),
		TargetID:     inv.TargetID(),
		InviterID:    inv.InviterUserID,
		InviteeEmail: inv.InviteeEmail,
		Level:        inv.Level,
		CanReshare:   inv.CanReshare,
		Message:      inv.Message,
		Status:       string(inv.Status),
		CreatedAt:    inv.CreatedAt.Format(time.RFC3339),
		ExpiresAt:    inv.ExpiresAt.Format(time.RFC3339),
	}
	if inv.RespondedAt != nil {
		v.RespondedAt = inv.RespondedAt.Format(time.RFC3339)
	}
	return v
}

// HandleCreate handles POST /api/invitations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return
	}

	inv, err := h.service.Create(r.Context(), user.ID, CreateInput{
		DocumentID:   req.DocumentID,
		TeamID:       req.TeamID,
		GameID:       req.GameID,
		InviteeEmail: req.InviteeEmail,
		Level:        permission.Level(req.Level),
		CanReshare:   req.CanReshare,
		Message:      req.Message,
	})
	if err != nil {
		h.writeError(w, err, "create invitation")
		return
	}

	view := viewOf(inv)
	view.Token = inv.Token
	api.WriteJSON(w, http.StatusCreated, view)
}

// HandleResolve handles GET /api/invitations/resolve/{token}.
// The endpoint is public: the token itself is the credential.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "token is required")
		return
	}

	inv, err := h.service.Resolve(r.Context(), token)
	if err != nil {
		h.writeError(w, err, "resolve invitation")
		return
	}

	api.WriteJSON(w, http.StatusOK, resolveViewOf(inv))
}

// HandleAccept handles POST /api/invitations/{invitationId}/accept.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	invitationID := chi.URLParam(r, "invitationId")
	if invitationID == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "invitationId is required")
		return
	}

	inv, err := h.service.Accept(r.Context(), invitationID, user.ID)
	if err != nil {
		h.writeError(w, err, "accept invitation")
		return
	}

	h.log.Info("invitation accepted",
		"invitation_id", inv.ID, "user_id", user.ID,
		"target_kind", inv.TargetKind(), "target_id", inv.TargetID())

	api.WriteJSON(w, http.StatusOK, viewOf(inv))
}

// HandleDecline handles POST /api/invitations/{invitationId}/decline.
// The invitee declines; the inviter cancels, which lands as revoked.
func (h *Handler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	invitationID := chi.URLParam(r, "invitationId")
	if invitationID == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "invitationId is required")
		return
	}

	inv, err := h.service.Decline(r.Context(), invitationID, user.ID)
	if err != nil {
		h.writeError(w, err, "decline invitation")
		return
	}

	api.WriteJSON(w, http.StatusOK, viewOf(inv))
}

// HandleListPending handles GET /api/invitations/pending. It lists the
// open invitations addressed to the authenticated user's email.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	invs, err := h.service.ListPending(r.Context(), user.Email)
	if err != nil {
		h.writeError(w, err, "list pending invitations")
		return
	}

	api.WriteJSON(w, http.StatusOK, viewList(invs))
}

// HandleListSent handles GET /api/invitations/sent.
func (h *Handler) HandleListSent(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	invs, err := h.service.ListSent(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, err, "list sent invitations")
		return
	}

	api.WriteJSON(w, http.StatusOK, viewList(invs))
}

func viewList(invs []*store.Invitation) []InvitationView {
	views := make([]InvitationView, 0, len(invs))
	for _, inv := range invs {
		views = append(views, viewOf(inv))
	}
	return views
}

// writeError maps service errors onto the deterministic reason codes.
func (h *Handler) writeError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, resource.ErrInvalidTarget):
		api.WriteBadRequest(w, api.ReasonInvalidTarget, err.Error())
	case errors.Is(err, ErrInvalidEmail):
		api.WriteBadRequest(w, api.ReasonInvalidEmail, err.Error())
	case errors.Is(err, permission.ErrInvalidLevel):
		api.WriteBadRequest(w, api.ReasonInvalidField, err.Error())
	case errors.Is(err, access.ErrInsufficientPermission):
		api.WriteForbidden(w, api.ReasonInsufficientPermission, err.Error())
	case errors.Is(err, ErrEmailMismatch):
		api.WriteForbidden(w, api.ReasonEmailMismatch, err.Error())
	case errors.Is(err, store.ErrNotFound):
		api.WriteNotFound(w, "invitation not found")
	case errors.Is(err, ErrNotPending):
		api.WriteConflict(w, api.ReasonInvitationNotPending, err.Error())
	case errors.Is(err, directory.ErrAlreadyMember):
		api.WriteConflict(w, api.ReasonAlreadyMember, err.Error())
	case errors.Is(err, ErrExpired):
		api.WriteError(w, http.StatusGone, api.ReasonExpired, err.Error())
	default:
		h.log.Error("invitation operation failed", "op", op, "error", err)
		api.WriteInternalError(w, "operation failed")
	}
}
