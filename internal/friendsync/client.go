// Package friendsync dispatches fire-and-forget notifications to an
// external friend service when an invite is accepted.
package friendsync

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Notifier posts friend-sync events to a configured URL. Failures are
// logged and never retried or surfaced to the caller.
type Notifier struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

// NewNotifier creates a notifier. An empty URL yields a no-op notifier.
func NewNotifier(url string, timeout time.Duration) *Notifier {
	return &Notifier{
		url:     url,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a sync URL is configured.
func (n *Notifier) Enabled() bool {
	return n.url != ""
}

type syncEvent struct {
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
	Status     string `json:"status"`
}

// Sync dispatches one event on a background goroutine and returns
// immediately; the triggering response path is never blocked.
func (n *Notifier) Sync(fromUserID, toUserID, status string) {
	if !n.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		body, err := json.Marshal(syncEvent{FromUserID: fromUserID, ToUserID: toUserID, Status: status})
		if err != nil {
			slog.Warn("Friend-sync marshal failed", "error", err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			slog.Warn("Friend-sync request build failed", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			slog.Warn("Friend-sync call failed", "error", err, "to", toUserID)
			return
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode >= 300 {
			slog.Warn("Friend-sync call rejected", "status", resp.StatusCode, "to", toUserID)
		}
	}()
}
