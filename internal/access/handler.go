package access

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/draftdeck/draftdeck/internal/api"
	"github.com/draftdeck/draftdeck/internal/identity"
	"github.com/draftdeck/draftdeck/internal/resource"
	"github.com/draftdeck/draftdeck/internal/store"
)

// Handler answers effective-permission queries over HTTP.
type Handler struct {
	resolver *Resolver
	log      *slog.Logger
}

// NewHandler creates an access handler.
func NewHandler(resolver *Resolver, log *slog.Logger) *Handler {
	return &Handler{resolver: resolver, log: log}
}

// Routes mounts the access endpoints on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/{kind}/{id}", h.HandleEffectivePermission)
}

// EffectiveView is the wire shape of an effective-permission answer.
// HasAccess false means no standing at all, which is distinct from the
// lowest level.
type EffectiveView struct {
	TargetKind string `json:"target_kind"`
	TargetID   string `json:"target_id"`
	HasAccess  bool   `json:"has_access"`
	Level      string `json:"level,omitempty"`
	CanReshare bool   `json:"can_reshare,omitempty"`
}

// HandleEffectivePermission handles GET /api/access/{kind}/{id}.
func (h *Handler) HandleEffectivePermission(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		api.WriteUnauthorized(w, api.ReasonUnauthenticated, "authentication required")
		return
	}

	kind, err := resource.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		api.WriteBadRequest(w, api.ReasonInvalidTarget, err.Error())
		return
	}
	target := resource.Target{Kind: kind, ID: chi.URLParam(r, "id")}
	if err := target.Validate(); err != nil {
		api.WriteBadRequest(w, api.ReasonInvalidTarget, err.Error())
		return
	}

	eff, hasAccess, err := h.resolver.EffectivePermission(r.Context(), user.ID, target)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			api.WriteNotFound(w, "resource not found")
			return
		}
		h.log.Error("effective permission query failed",
			"kind", string(kind), "id", target.ID, "user_id", user.ID, "error", err)
		api.WriteInternalError(w, "operation failed")
		return
	}

	view := EffectiveView{
		TargetKind: string(kind),
		TargetID:   target.ID,
		HasAccess:  hasAccess,
	}
	if hasAccess {
		view.Level = string(eff.Level)
		view.CanReshare = eff.CanReshare
	}
	api.WriteJSON(w, http.StatusOK, view)
}
