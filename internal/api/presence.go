package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ndemidov/presenced/internal/presence"
)

// PresenceHandler handles presence-related endpoints.
type PresenceHandler struct {
	*Handler
}

// NewPresenceHandler creates a new presence handler.
func NewPresenceHandler(base *Handler) *PresenceHandler {
	return &PresenceHandler{Handler: base}
}

// RegisterRoutes registers presence routes.
func (h *PresenceHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/presence", func(r chi.Router) {
		r.Post("/heartbeat", h.Heartbeat)
		r.Post("/offline", h.Offline)
		r.Post("/query", h.Query)
		r.Get("/stats", h.Stats)
		r.Get("/{userID}", h.Get)
	})
	r.Get("/api/directory/version", h.DirectoryVersion)
}

type heartbeatRequest struct {
	UserID   string         `json:"userId"`
	Status   string         `json:"status"`
	TTLMs    int64          `json:"ttlMs"`
	Metadata map[string]any `json:"metadata"`
}

// Heartbeat upserts a presence record and fans the change out to
// subscribers.
func (h *PresenceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		Error(w, http.StatusBadRequest, "userId is required")
		return
	}
	status := presence.Status(req.Status)
	if req.Status == "" {
		status = presence.StatusOnline
	}
	if !status.Valid() {
		Error(w, http.StatusBadRequest, "invalid status")
		return
	}
	if req.TTLMs < 0 {
		Error(w, http.StatusBadRequest, "ttlMs must not be negative")
		return
	}

	snap := h.store.Upsert(req.UserID, status, time.Duration(req.TTLMs)*time.Millisecond, req.Metadata)
	h.broadcaster.Notify(r.Context(), snap)
	JSON(w, http.StatusOK, snapshotJSON(snap))
}

type offlineRequest struct {
	UserID string `json:"userId"`
}

// Offline removes a presence record and broadcasts the offline
// transition.
func (h *PresenceHandler) Offline(w http.ResponseWriter, r *http.Request) {
	var req offlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		Error(w, http.StatusBadRequest, "userId is required")
		return
	}

	lastSeen := time.Now()
	if snap, ok := h.store.GetOne(req.UserID); ok {
		lastSeen = snap.LastSeen
	}
	h.store.MarkOffline(req.UserID)
	h.broadcaster.NotifyOffline(r.Context(), req.UserID, lastSeen)
	JSON(w, http.StatusOK, map[string]interface{}{"user_id": req.UserID, "status": "offline"})
}

// Get returns the current snapshot for one user.
func (h *PresenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	snap, ok := h.store.GetOne(userID)
	if !ok {
		Error(w, http.StatusNotFound, "user not present")
		return
	}
	JSON(w, http.StatusOK, snapshotJSON(snap))
}

type queryRequest struct {
	UserIDs []string `json:"userIds"`
}

// Query resolves snapshots for a batch of users; absentees are omitted.
func (h *PresenceHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snaps := h.store.GetMany(req.UserIDs)
	users := make([]map[string]interface{}, 0, len(snaps))
	for _, snap := range snaps {
		users = append(users, snapshotJSON(snap))
	}
	JSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// Stats reports approximate store and registry sizes.
func (h *PresenceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"tracked_entries": h.store.Size(),
		"subscriptions":   h.registry.Size(),
	})
}

// DirectoryVersion reports the latest observed profile-directory
// version.
func (h *PresenceHandler) DirectoryVersion(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{"version": h.version.Current()})
}
