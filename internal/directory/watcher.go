package directory

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// changeEvent is the payload published on the profile-change channel.
// Only the document ID is carried; the watcher treats it as opaque.
type changeEvent struct {
	DocID string `json:"docId"`
}

// Watcher subscribes to a Redis Pub/Sub channel of profile-change
// events and bumps the directory version for each one.
type Watcher struct {
	client  *redis.Client
	channel string
	version *Version
}

// NewWatcher creates a watcher on the given channel.
func NewWatcher(client *redis.Client, channel string, version *Version) *Watcher {
	return &Watcher{client: client, channel: channel, version: version}
}

// Start runs the subscription loop on a background goroutine until ctx
// is cancelled. Malformed events still bump the version: the signal is
// "something changed", not the payload.
func (w *Watcher) Start(ctx context.Context) {
	sub := w.client.Subscribe(ctx, w.channel)
	go func() {
		defer func() {
			if err := sub.Close(); err != nil {
				slog.Debug("Failed to close pubsub subscription", "error", err)
			}
		}()
		slog.Info("Directory watcher started", "channel", w.channel)

		ch := sub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					slog.Warn("Directory watcher channel closed")
					return
				}
				var ev changeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					slog.Debug("Unparseable profile change event", "payload", msg.Payload)
				}
				v := w.version.Bump()
				slog.Debug("Profile change observed", "doc_id", ev.DocID, "version", v)
			case <-ctx.Done():
				slog.Info("Directory watcher shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
