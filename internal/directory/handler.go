package directory

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/draftdeck/draftdeck/internal/access"
	"github.com/draftdeck/draftdeck/internal/api"
	"github.com/draftdeck/draftdeck/internal/identity"
	"github.com/draftdeck/draftdeck/internal/permission"
	"github.com/draftdeck/draftdeck/internal/store"
)

// Handler exposes the collaboration directory over HTTP: the
// collaborator roster of a document and the member roster of a team.
type Handler struct {
	service *Service
	log     *slog.Logger
}

// NewHandler creates a directory handler.
func NewHandler(service *Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// DocumentRoutes mounts the collaborator endpoints under a document.
func (h *Handler) DocumentRoutes(r chi.Router) {
	r.Route("/{documentId}/collaborators", func(r chi.Router) {
		r.Get("/", h.HandleListCollaborators)
		r.Post("/", h.HandleAddCollaborator)
		r.Put("/{userId}", h.HandleUpdateCollaborator)
		r.Delete("/{userId}", h.HandleRemoveCollaborator)
	})
}

// TeamRoutes mounts the team and membership endpoints.
func (h *Handler) TeamRoutes(r chi.Router) {
	r.Post("/", h.HandleCreateTeam)
	r.Route("/{teamId}/members", func(r chi.Router) {
		r.Get("/", h.HandleListMembers)
		r.Post("/", h.HandleAddMember)
		r.Put("/{userId}", h.HandleUpdateMemberRole)
		r.Delete("/{userId}", h.HandleRemoveMember)
	})
}

// CreateTeamRequest is the request body for creating a team.
type CreateTeamRequest struct {
	Name string `json:"name"`
}

// TeamView is the wire shape of a team.
type TeamView struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// CollaboratorRequest carries a collaborator mutation.
type CollaboratorRequest struct {
	UserID   string `json:"user_id"`
	Level    string `json:"level"`
	CanShare bool   `json:"can_share,omitempty"`
}

// CollaboratorView is the wire shape of a collaborator grant.
type CollaboratorView struct {
	UserID    string `json:"user_id"`
	Level     string `json:"level"`
	CanShare  bool   `json:"can_share,omitempty"`
	GrantedBy string `json:"granted_by"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// MemberRequest carries a membership mutation.
type MemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// MemberView is the wire shape of a team membership.
type MemberView struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func collaboratorView(g *store.CollaboratorGrant) CollaboratorView {
	return CollaboratorView{
		UserID:    g.UserID,
		Level:     g.Level,
		CanShare:  g.CanShare,
		GrantedBy: g.GrantedBy,
		CreatedAt: g.CreatedAt.Format(time.RFC3339),
		UpdatedAt: g.UpdatedAt.Format(time.RFC3339),
	}
}

func memberView(m *store.TeamMembership) MemberView {
	return MemberView{
		UserID:    m.UserID,
		Role:      m.Role,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
		UpdatedAt: m.UpdatedAt.Format(time.RFC3339),
	}
}

// HandleCreateTeam handles POST /api/teams.
func (h *Handler) HandleCreateTeam(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	var req CreateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "name is required")
		return
	}

	team, err := h.service.CreateTeam(r.Context(), user.ID, req.Name)
	if err != nil {
		h.writeError(w, err, "create team")
		return
	}

	api.WriteJSON(w, http.StatusCreated, TeamView{
		ID:        team.ID,
		OwnerID:   team.OwnerUserID,
		Name:      team.Name,
		CreatedAt: team.CreatedAt.Format(time.RFC3339),
	})
}

// HandleListCollaborators handles GET /api/documents/{documentId}/collaborators.
func (h *Handler) HandleListCollaborators(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	grants, err := h.service.ListCollaborators(r.Context(), user.ID, chi.URLParam(r, "documentId"))
	if err != nil {
		h.writeError(w, err, "list collaborators")
		return
	}

	views := make([]CollaboratorView, 0, len(grants))
	for _, g := range grants {
		views = append(views, collaboratorView(g))
	}
	api.WriteJSON(w, http.StatusOK, views)
}

// HandleAddCollaborator handles POST /api/documents/{documentId}/collaborators.
func (h *Handler) HandleAddCollaborator(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	var req CollaboratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "user_id is required")
		return
	}
	level, err := permission.Parse(req.Level)
	if err != nil {
		api.WriteBadRequest(w, api.ReasonInvalidField, err.Error())
		return
	}

	grant, err := h.service.AddCollaborator(r.Context(), user.ID, chi.URLParam(r, "documentId"), req.UserID, level, req.CanShare)
	if err != nil {
		h.writeError(w, err, "add collaborator")
		return
	}

	api.WriteJSON(w, http.StatusCreated, collaboratorView(grant))
}

// HandleUpdateCollaborator handles PUT /api/documents/{documentId}/collaborators/{userId}.
func (h *Handler) HandleUpdateCollaborator(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	var req CollaboratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return
	}
	level, err := permission.Parse(req.Level)
	if err != nil {
		api.WriteBadRequest(w, api.ReasonInvalidField, err.Error())
		return
	}

	documentID := chi.URLParam(r, "documentId")
	userID := chi.URLParam(r, "userId")
	if err := h.service.UpdateCollaboratorPermission(r.Context(), user.ID, documentID, userID, level, req.CanShare); err != nil {
		h.writeError(w, err, "update collaborator")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveCollaborator handles DELETE /api/documents/{documentId}/collaborators/{userId}.
func (h *Handler) HandleRemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	documentID := chi.URLParam(r, "documentId")
	userID := chi.URLParam(r, "userId")
	if err := h.service.RemoveCollaborator(r.Context(), user.ID, documentID, userID); err != nil {
		h.writeError(w, err, "remove collaborator")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleListMembers handles GET /api/teams/{teamId}/members.
func (h *Handler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	members, err := h.service.ListTeamMembers(r.Context(), user.ID, chi.URLParam(r, "teamId"))
	if err != nil {
		h.writeError(w, err, "list team members")
		return
	}

	views := make([]MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, memberView(m))
	}
	api.WriteJSON(w, http.StatusOK, views)
}

// HandleAddMember handles POST /api/teams/{teamId}/members.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		api.WriteBadRequest(w, api.ReasonMissingField, "user_id is required")
		return
	}
	role, err := permission.ParseTeamRole(req.Role)
	if err != nil {
		api.WriteBadRequest(w, api.ReasonInvalidField, err.Error())
		return
	}

	member, err := h.service.AddTeamMember(r.Context(), user.ID, chi.URLParam(r, "teamId"), req.UserID, role)
	if err != nil {
		h.writeError(w, err, "add team member")
		return
	}

	api.WriteJSON(w, http.StatusCreated, memberView(member))
}

// HandleUpdateMemberRole handles PUT /api/teams/{teamId}/members/{userId}.
func (h *Handler) HandleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, api.ReasonBadRequest, "invalid JSON body")
		return
	}
	role, err := permission.ParseTeamRole(req.Role)
	if err != nil {
		api.WriteBadRequest(w, api.ReasonInvalidField, err.Error())
		return
	}

	teamID := chi.URLParam(r, "teamId")
	userID := chi.URLParam(r, "userId")
	if err := h.service.UpdateTeamRole(r.Context(), user.ID, teamID, userID, role); err != nil {
		h.writeError(w, err, "update team role")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveMember handles DELETE /api/teams/{teamId}/members/{userId}.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	teamID := chi.URLParam(r, "teamId")
	userID := chi.URLParam(r, "userId")
	if err := h.service.RemoveTeamMember(r.Context(), user.ID, teamID, userID); err != nil {
		h.writeError(w, err, "remove team member")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, permission.ErrInvalidLevel):
		api.WriteBadRequest(w, api.ReasonInvalidField, err.Error())
	case errors.Is(err, access.ErrInsufficientPermission):
		api.WriteForbidden(w, api.ReasonInsufficientPermission, err.Error())
	case errors.Is(err, store.ErrNotFound):
		api.WriteNotFound(w, "not found")
	case errors.Is(err, ErrAlreadyMember):
		api.WriteConflict(w, api.ReasonAlreadyMember, err.Error())
	case errors.Is(err, ErrLastOwner):
		api.WriteConflict(w, api.ReasonLastOwner, err.Error())
	default:
		h.log.Error("directory operation failed", "op", op, "error", err)
		api.WriteInternalError(w, "operation failed")
	}
}
