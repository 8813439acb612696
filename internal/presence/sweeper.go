package presence

import (
	"context"
	"log/slog"
	"time"
)

// StartSweeper runs a background goroutine that periodically removes
// expired presence records and broadcasts an offline update for each,
// so subscribers learn about silent disappearances no later than one
// sweep interval after expiry. The sweeper stops when ctx is cancelled.
func StartSweeper(ctx context.Context, store *Store, broadcaster *Broadcaster, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Presence sweeper started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				removed := store.CleanupExpired()
				if len(removed) == 0 {
					continue
				}
				slog.Info("Presence sweep removed expired records", "count", len(removed))
				for _, rec := range removed {
					broadcaster.NotifyOffline(ctx, rec.UserID, rec.LastSeen)
				}
			case <-ctx.Done():
				slog.Info("Presence sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
