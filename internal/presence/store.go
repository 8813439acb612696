// Package presence provides the in-memory presence store, subscription
// registry, and broadcast engine for the lobby.
package presence

import (
	"sync"
	"time"
)

// Status is a user's declared presence state.
type Status string

const (
	StatusOnline Status = "online"
	StatusAway   Status = "away"
	StatusBusy   Status = "busy"

	// StatusOffline is never stored; it only appears in updates and
	// replies for users without a live record.
	StatusOffline Status = "offline"
)

// Valid reports whether s is a storable presence status.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy:
		return true
	}
	return false
}

// minTTL is the floor on effective TTL. Near-zero TTLs from misbehaving
// clients would otherwise cause churn storms.
const minTTL = time.Second

// Record is the stored presence state for one user.
type Record struct {
	UserID    string
	Status    Status
	LastSeen  time.Time
	ExpiresAt time.Time
	Metadata  map[string]any
}

// Snapshot is a Record plus time-derived fields. IsOnline and TTL are
// recomputed on every read because "online" is a function of wall-clock
// time, not a stored flag.
type Snapshot struct {
	Record
	IsOnline bool
	TTL      time.Duration
}

// Store holds presence records keyed by user ID. It is safe for
// concurrent use; a single mutex guards the backing map so upserts,
// reads, and sweeps never interleave partially.
type Store struct {
	mu         sync.RWMutex
	records    map[string]Record
	defaultTTL time.Duration
	now        func() time.Time
}

// NewStore creates a presence store with the given default TTL.
// A defaultTTL below one second is raised to one second.
func NewStore(defaultTTL time.Duration) *Store {
	if defaultTTL < minTTL {
		defaultTTL = minTTL
	}
	return &Store{
		records:    make(map[string]Record),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

func (s *Store) snapshotAt(rec Record, now time.Time) Snapshot {
	ttl := rec.ExpiresAt.Sub(now)
	if ttl < 0 {
		ttl = 0
	}
	return Snapshot{
		Record:   rec,
		IsOnline: ttl > 0,
		TTL:      ttl,
	}
}

// Upsert fully replaces the record for userID and returns the new
// snapshot. A zero ttlOverride means "use the configured default"; any
// override below one second is raised to one second.
func (s *Store) Upsert(userID string, status Status, ttlOverride time.Duration, metadata map[string]any) Snapshot {
	ttl := s.defaultTTL
	if ttlOverride > 0 {
		ttl = ttlOverride
	}
	if ttl < minTTL {
		ttl = minTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := Record{
		UserID:    userID,
		Status:    status,
		LastSeen:  now,
		ExpiresAt: now.Add(ttl),
		Metadata:  metadata,
	}
	s.records[userID] = rec
	return s.snapshotAt(rec, now)
}

// MarkOffline removes the record for userID if present. It is
// idempotent: removing an absent user is a no-op.
func (s *Store) MarkOffline(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
}

// GetOne returns the current snapshot for userID. A record whose expiry
// has passed is evicted on the spot and reported as absent.
func (s *Store) GetOne(userID string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return Snapshot{}, false
	}
	now := s.now()
	if !rec.ExpiresAt.After(now) {
		delete(s.records, userID)
		return Snapshot{}, false
	}
	return s.snapshotAt(rec, now), true
}

// GetMany resolves snapshots for a list of user IDs. Duplicate IDs are
// collapsed, absent or expired users are omitted, and the result order
// follows the de-duplicated input.
func (s *Store) GetMany(userIDs []string) []Snapshot {
	seen := make(map[string]bool, len(userIDs))
	result := make([]Snapshot, 0, len(userIDs))
	for _, id := range userIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if snap, ok := s.GetOne(id); ok {
			result = append(result, snap)
		}
	}
	return result
}

// CleanupExpired removes every expired record in one pass and returns
// the removed records so callers can notify subscribers.
func (s *Store) CleanupExpired() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed []Record
	for id, rec := range s.records {
		if !rec.ExpiresAt.After(now) {
			delete(s.records, id)
			removed = append(removed, rec)
		}
	}
	return removed
}

// Size returns the number of entries currently tracked. Expired records
// not yet swept or lazily evicted are included, so this is an
// approximate count of tracked entries, not of online users.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
