package presence

import (
	"context"
	"log/slog"
	"sync"
)

// Sender delivers a single presence update to one subscriber
// connection. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, update Update) error
}

// Subscriber pairs a connection's opaque ID with its sender.
type Subscriber struct {
	ConnID string
	Sender Sender
}

type subscription struct {
	sender Sender
	peers  map[string]bool
}

// Registry tracks which connections want updates about which peers.
// Connections are identified by opaque generated IDs rather than by
// connection object identity, so the registry never depends on
// reference equality of the transport's types.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*subscription   // connID -> subscription
	peers map[string]map[string]bool // peerID -> set of connIDs
}

// NewRegistry creates an empty subscription registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*subscription),
		peers: make(map[string]map[string]bool),
	}
}

// Subscribe replaces the watched-peer set for connID wholesale. A
// second subscribe from the same connection drops the previous set.
func (r *Registry) Subscribe(connID string, sender Sender, peerIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dropLocked(connID)

	peers := make(map[string]bool, len(peerIDs))
	for _, id := range peerIDs {
		if id == "" {
			continue
		}
		peers[id] = true
		if r.peers[id] == nil {
			r.peers[id] = make(map[string]bool)
		}
		r.peers[id][connID] = true
	}
	r.conns[connID] = &subscription{sender: sender, peers: peers}
	slog.Debug("Subscription replaced", "conn_id", connID, "peers", len(peers))
}

// Unsubscribe removes the connection's subscription entirely.
// Idempotent.
func (r *Registry) Unsubscribe(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked(connID)
}

// Remove is called on connection teardown; it is the same operation as
// Unsubscribe.
func (r *Registry) Remove(connID string) {
	r.Unsubscribe(connID)
}

func (r *Registry) dropLocked(connID string) {
	sub, ok := r.conns[connID]
	if !ok {
		return
	}
	for peerID := range sub.peers {
		if conns, ok := r.peers[peerID]; ok {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(r.peers, peerID)
			}
		}
	}
	delete(r.conns, connID)
}

// SubscribersOf returns every connection currently watching peerID. The
// result is a copy, so a connection closing concurrently with delivery
// only produces a failed send, never a torn read.
func (r *Registry) SubscribersOf(peerID string) []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.peers[peerID]
	if len(conns) == 0 {
		return nil
	}
	result := make([]Subscriber, 0, len(conns))
	for connID := range conns {
		if sub, ok := r.conns[connID]; ok {
			result = append(result, Subscriber{ConnID: connID, Sender: sub.sender})
		}
	}
	return result
}

// Size returns the number of registered connections.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
