package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coder/websocket"
	"github.com/ndemidov/presenced/internal/presence"
)

// client wraps a websocket connection with serialized writes. The
// broadcaster pushes from other goroutines, so every write goes through
// one mutex to satisfy the single-writer rule of coder/websocket.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn}
}

func (c *client) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// Send implements presence.Sender.
func (c *client) Send(ctx context.Context, update presence.Update) error {
	return c.writeJSON(ctx, presenceUpdate{Type: "presence-update", Update: update})
}
