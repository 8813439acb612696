// Package ws binds websocket connections to the presence store,
// subscription registry, and broadcast engine.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/ndemidov/presenced/internal/presence"
)

// Handler upgrades HTTP requests to websocket connections and runs the
// per-connection message loop.
type Handler struct {
	store         *presence.Store
	registry      *presence.Registry
	broadcaster   *presence.Broadcaster
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a websocket handler.
func NewHandler(store *presence.Store, registry *presence.Registry, broadcaster *presence.Broadcaster, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		store:         store,
		registry:      registry,
		broadcaster:   broadcaster,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for the websocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}

	connID := uuid.NewString()
	slog.Info("Lobby connection opened", "conn_id", connID, "ip", r.RemoteAddr)

	defer func() {
		if closeErr := conn.Close(websocket.StatusNormalClosure, "connection ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "conn_id", connID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := newClient(conn)
	// Teardown order matters: registry cleanup is unconditional, the
	// offline transition only applies once the connection identified.
	userID := ""
	defer func() {
		h.registry.Remove(connID)
		if userID != "" {
			h.dropPresence(userID)
		}
		slog.Info("Lobby connection closed", "conn_id", connID, "user_id", userID)
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "conn_id", connID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "conn_id", connID)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.replyError(ctx, c, "malformed message")
			continue
		}
		h.dispatch(ctx, c, connID, &userID, msg)
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || h.allowedOrigin == "" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// dispatch routes one inbound message. A panic inside a handler is
// converted into an error reply so a single bad message never takes
// down the connection or the process.
func (h *Handler) dispatch(ctx context.Context, c *client, connID string, userID *string, msg inbound) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Panic in message handler", "conn_id", connID, "type", msg.Type, "panic", rec)
			h.replyError(ctx, c, "internal error")
		}
	}()

	switch msg.Type {
	case "heartbeat":
		h.handleHeartbeat(ctx, c, userID, msg)
	case "offline":
		h.handleOffline(ctx, c, msg)
	case "query-presence":
		h.handleQuery(ctx, c, msg)
	case "subscribe-friends":
		h.handleSubscribe(ctx, c, connID, msg)
	case "unsubscribe-friends":
		h.registry.Remove(connID)
	default:
		// Unknown types are ignored silently; only parse and
		// validation failures produce error replies.
	}
}

func (h *Handler) handleHeartbeat(ctx context.Context, c *client, userID *string, msg inbound) {
	if msg.UserID == "" {
		h.replyError(ctx, c, "heartbeat requires userId")
		return
	}
	status := presence.Status(msg.Status)
	if msg.Status == "" {
		status = presence.StatusOnline
	}
	if !status.Valid() {
		h.replyError(ctx, c, "invalid status")
		return
	}
	if msg.TTLMs < 0 {
		h.replyError(ctx, c, "ttlMs must not be negative")
		return
	}

	// First well-formed heartbeat identifies the connection; a later
	// heartbeat with a different userId rebinds it.
	*userID = msg.UserID

	snap := h.store.Upsert(msg.UserID, status, time.Duration(msg.TTLMs)*time.Millisecond, msg.Metadata)
	if err := c.writeJSON(ctx, heartbeatAck{Type: "heartbeat-ack", User: toWire(snap)}); err != nil {
		slog.Debug("Failed to send heartbeat ack", "error", err, "user_id", msg.UserID)
	}
	h.broadcaster.Notify(ctx, snap)
}

func (h *Handler) handleOffline(ctx context.Context, c *client, msg inbound) {
	if msg.UserID == "" {
		h.replyError(ctx, c, "offline requires userId")
		return
	}
	h.dropPresence(msg.UserID)
	if err := c.writeJSON(ctx, offlineAck{Type: "offline-ack", UserID: msg.UserID}); err != nil {
		slog.Debug("Failed to send offline ack", "error", err, "user_id", msg.UserID)
	}
}

// dropPresence removes a user's record and broadcasts the offline
// transition, preserving the last-known lastSeen captured before the
// removal.
func (h *Handler) dropPresence(userID string) {
	lastSeen := time.Now()
	if snap, ok := h.store.GetOne(userID); ok {
		lastSeen = snap.LastSeen
	}
	h.store.MarkOffline(userID)
	h.broadcaster.NotifyOffline(context.Background(), userID, lastSeen)
}

func (h *Handler) handleQuery(ctx context.Context, c *client, msg inbound) {
	if msg.RequestID == "" {
		h.replyError(ctx, c, "query-presence requires requestId")
		return
	}
	if msg.UserIDs == nil {
		h.replyError(ctx, c, "query-presence requires userIds")
		return
	}
	snaps := h.store.GetMany(msg.UserIDs)
	reply := presenceResult{
		Type:      "presence-result",
		RequestID: msg.RequestID,
		Users:     toWireList(snaps),
	}
	if err := c.writeJSON(ctx, reply); err != nil {
		slog.Debug("Failed to send presence result", "error", err, "request_id", msg.RequestID)
	}
}

func (h *Handler) handleSubscribe(ctx context.Context, c *client, connID string, msg inbound) {
	if msg.FriendIDs == nil {
		h.replyError(ctx, c, "subscribe-friends requires friendIds")
		return
	}
	h.registry.Subscribe(connID, c, msg.FriendIDs)

	// Immediate snapshot of all requested friends; absentees omitted.
	snaps := h.store.GetMany(msg.FriendIDs)
	if err := c.writeJSON(ctx, friendsSnapshot{Type: "friends-snapshot", Users: toWireList(snaps)}); err != nil {
		slog.Debug("Failed to send friends snapshot", "error", err, "conn_id", connID)
	}
}

func (h *Handler) replyError(ctx context.Context, c *client, reason string) {
	if err := c.writeJSON(ctx, errorReply{Type: "error", Error: reason}); err != nil {
		slog.Debug("Failed to send error reply", "error", err)
	}
}
