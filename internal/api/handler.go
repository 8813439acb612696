// Package api provides HTTP handlers for the lobby API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ndemidov/presenced/internal/directory"
	"github.com/ndemidov/presenced/internal/friendsync"
	"github.com/ndemidov/presenced/internal/presence"
	"github.com/ndemidov/presenced/internal/store"
)

// Handler provides common handler utilities and dependencies.
type Handler struct {
	store       *presence.Store
	registry    *presence.Registry
	broadcaster *presence.Broadcaster
	repo        store.Repository
	notifier    *friendsync.Notifier
	version     *directory.Version
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(st *presence.Store, registry *presence.Registry, broadcaster *presence.Broadcaster, repo store.Repository, notifier *friendsync.Notifier, version *directory.Version) *Handler {
	return &Handler{
		store:       st,
		registry:    registry,
		broadcaster: broadcaster,
		repo:        repo,
		notifier:    notifier,
		version:     version,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// snapshotJSON renders a presence snapshot for API responses.
func snapshotJSON(snap presence.Snapshot) map[string]interface{} {
	return map[string]interface{}{
		"user_id":   snap.UserID,
		"status":    snap.Status,
		"last_seen": snap.LastSeen.UnixMilli(),
		"is_online": snap.IsOnline,
		"ttl_ms":    snap.TTL.Milliseconds(),
		"metadata":  snap.Metadata,
	}
}
