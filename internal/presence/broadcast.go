package presence

import (
	"context"
	"log/slog"
	"time"
)

// Update is the message pushed to subscribers when a watched peer's
// presence changes.
type Update struct {
	UserID   string         `json:"userId"`
	Status   Status         `json:"status"`
	LastSeen int64          `json:"lastSeen"`
	Metadata map[string]any `json:"metadata"`
}

// Broadcaster fans presence changes out to subscribed connections.
type Broadcaster struct {
	registry *Registry
}

// NewBroadcaster creates a broadcaster backed by the given registry.
func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

// Notify pushes the peer's new presence to every subscriber. Delivery
// is best-effort: a failed send evicts that connection from the
// registry and delivery continues to the remaining subscribers.
func (b *Broadcaster) Notify(ctx context.Context, snap Snapshot) {
	status := snap.Status
	if !snap.IsOnline {
		status = StatusOffline
	}
	b.deliver(ctx, Update{
		UserID:   snap.UserID,
		Status:   status,
		LastSeen: snap.LastSeen.UnixMilli(),
		Metadata: snap.Metadata,
	})
}

// NotifyOffline pushes a synthesized offline update for a peer whose
// record was just removed, preserving the last-known lastSeen.
func (b *Broadcaster) NotifyOffline(ctx context.Context, userID string, lastSeen time.Time) {
	b.deliver(ctx, Update{
		UserID:   userID,
		Status:   StatusOffline,
		LastSeen: lastSeen.UnixMilli(),
	})
}

func (b *Broadcaster) deliver(ctx context.Context, update Update) {
	// The triggering request's context can end the moment its own
	// client disconnects; a send failure caused by that cancellation
	// says nothing about the subscriber. Deliver on a detached context
	// so only errors from the subscriber's side evict it.
	ctx = context.WithoutCancel(ctx)
	for _, sub := range b.registry.SubscribersOf(update.UserID) {
		if err := sub.Sender.Send(ctx, update); err != nil {
			slog.Debug("Presence push failed, evicting subscriber",
				"conn_id", sub.ConnID,
				"peer_id", update.UserID,
				"error", err)
			b.registry.Remove(sub.ConnID)
		}
	}
}
