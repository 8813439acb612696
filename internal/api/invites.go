package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ndemidov/presenced/internal/domain"
	"github.com/ndemidov/presenced/internal/store"
)

// InviteHandler handles friend-invite endpoints.
type InviteHandler struct {
	*Handler
}

// NewInviteHandler creates a new invite handler.
func NewInviteHandler(base *Handler) *InviteHandler {
	return &InviteHandler{Handler: base}
}

// RegisterRoutes registers invite routes.
func (h *InviteHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/invites", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Patch("/{inviteID}", h.UpdateStatus)
	})
}

type createInviteRequest struct {
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
}

// Create stores a new pending invite.
func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FromUserID == "" || req.ToUserID == "" {
		Error(w, http.StatusBadRequest, "fromUserId and toUserId are required")
		return
	}
	if req.FromUserID == req.ToUserID {
		Error(w, http.StatusBadRequest, "cannot invite yourself")
		return
	}

	now := time.Now()
	invite := &domain.Invite{
		ID:         uuid.NewString(),
		FromUserID: req.FromUserID,
		ToUserID:   req.ToUserID,
		Status:     domain.InvitePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.repo.CreateInvite(r.Context(), invite); err != nil {
		slog.Error("Failed to create invite", "error", err, "from", req.FromUserID, "to", req.ToUserID)
		Error(w, http.StatusInternalServerError, "failed to create invite")
		return
	}
	JSON(w, http.StatusCreated, invite)
}

// List returns all invites involving a user.
func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		Error(w, http.StatusBadRequest, "user query parameter is required")
		return
	}

	invites, err := h.repo.ListInvitesForUser(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to list invites", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to list invites")
		return
	}
	if invites == nil {
		invites = []*domain.Invite{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"invites": invites})
}

type updateInviteRequest struct {
	Status string `json:"status"`
}

// UpdateStatus resolves a pending invite. Accepting dispatches a
// fire-and-forget friend-sync call.
func (h *InviteHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	inviteID := chi.URLParam(r, "inviteID")

	var req updateInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	target := domain.InviteStatus(req.Status)
	if !target.Valid() || target == domain.InvitePending {
		Error(w, http.StatusBadRequest, "status must be accepted or declined")
		return
	}

	invite, err := h.repo.GetInvite(r.Context(), inviteID)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "invite not found")
		return
	}
	if err != nil {
		slog.Error("Failed to load invite", "error", err, "invite_id", inviteID)
		Error(w, http.StatusInternalServerError, "failed to load invite")
		return
	}
	if !invite.CanTransitionTo(target) {
		Error(w, http.StatusConflict, "invite already resolved")
		return
	}

	updated, err := h.repo.UpdateInviteStatus(r.Context(), inviteID, target)
	if errors.Is(err, store.ErrAlreadyResolved) {
		// Lost a race with a concurrent resolve between the check
		// above and the write.
		Error(w, http.StatusConflict, "invite already resolved")
		return
	}
	if err != nil {
		slog.Error("Failed to update invite", "error", err, "invite_id", inviteID)
		Error(w, http.StatusInternalServerError, "failed to update invite")
		return
	}

	if target == domain.InviteAccepted {
		h.notifier.Sync(updated.FromUserID, updated.ToUserID, string(target))
	}
	JSON(w, http.StatusOK, updated)
}
