package presence

import (
	"strconv"
	"testing"
	"time"
)

// fakeClock lets tests advance store time deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestStore(defaultTTL time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	s := NewStore(defaultTTL)
	s.now = clock.Now
	return s, clock
}

func TestStore_UpsertThenGetOne(t *testing.T) {
	s, _ := newTestStore(30 * time.Second)

	s.Upsert("alice", StatusBusy, 2*time.Second, map[string]any{"room": "lobby-1"})

	snap, ok := s.GetOne("alice")
	if !ok {
		t.Fatal("Expected alice to be present")
	}
	if snap.Status != StatusBusy {
		t.Errorf("Expected status busy, got %s", snap.Status)
	}
	if !snap.IsOnline {
		t.Error("Expected alice to be online")
	}
	if snap.TTL != 2*time.Second {
		t.Errorf("Expected TTL 2s, got %s", snap.TTL)
	}
	if snap.Metadata["room"] != "lobby-1" {
		t.Errorf("Expected metadata to pass through, got %v", snap.Metadata)
	}
}

func TestStore_UpsertReplacesWholesale(t *testing.T) {
	s, _ := newTestStore(30 * time.Second)

	s.Upsert("alice", StatusOnline, 0, map[string]any{"room": "lobby-1", "rank": 3})
	s.Upsert("alice", StatusAway, 0, nil)

	snap, ok := s.GetOne("alice")
	if !ok {
		t.Fatal("Expected alice to be present")
	}
	if snap.Status != StatusAway {
		t.Errorf("Expected status away, got %s", snap.Status)
	}
	if snap.Metadata != nil {
		t.Errorf("Expected metadata replaced with nil, got %v", snap.Metadata)
	}
}

func TestStore_LazyEviction(t *testing.T) {
	s, clock := newTestStore(30 * time.Second)

	s.Upsert("alice", StatusOnline, 2*time.Second, nil)
	clock.Advance(2100 * time.Millisecond)

	if _, ok := s.GetOne("alice"); ok {
		t.Error("Expected alice to be absent after TTL elapsed")
	}
	if s.Size() != 0 {
		t.Errorf("Expected size 0 after lazy eviction, got %d", s.Size())
	}
	// Idempotent: second read of an expired id is still absent.
	if _, ok := s.GetOne("alice"); ok {
		t.Error("Expected alice to still be absent on repeat read")
	}
}

func TestStore_ExactExpiryBoundaryIsAbsent(t *testing.T) {
	s, clock := newTestStore(30 * time.Second)

	s.Upsert("alice", StatusOnline, 2*time.Second, nil)
	clock.Advance(2 * time.Second)

	if _, ok := s.GetOne("alice"); ok {
		t.Error("Expected alice absent at expiresAt == now")
	}
}

func TestStore_TTLFloor(t *testing.T) {
	s, _ := newTestStore(30 * time.Second)

	snap := s.Upsert("alice", StatusOnline, 10*time.Millisecond, nil)
	if snap.TTL < time.Second {
		t.Errorf("Expected TTL of at least 1s, got %s", snap.TTL)
	}
}

func TestStore_DefaultTTL(t *testing.T) {
	s, _ := newTestStore(30 * time.Second)

	snap := s.Upsert("alice", StatusOnline, 0, nil)
	if snap.TTL != 30*time.Second {
		t.Errorf("Expected default TTL 30s, got %s", snap.TTL)
	}
}

func TestStore_MarkOfflineIdempotent(t *testing.T) {
	s, _ := newTestStore(30 * time.Second)

	s.Upsert("alice", StatusOnline, 0, nil)
	s.MarkOffline("alice")
	s.MarkOffline("alice")

	if _, ok := s.GetOne("alice"); ok {
		t.Error("Expected alice absent after MarkOffline")
	}
	if s.Size() != 0 {
		t.Errorf("Expected size 0, got %d", s.Size())
	}
}

func TestStore_GetManyDeduplicates(t *testing.T) {
	s, _ := newTestStore(30 * time.Second)

	s.Upsert("a", StatusOnline, 0, nil)
	s.Upsert("b", StatusAway, 0, nil)

	snaps := s.GetMany([]string{"a", "a", "b", "missing"})
	if len(snaps) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].UserID != "a" || snaps[1].UserID != "b" {
		t.Errorf("Expected order [a b], got [%s %s]", snaps[0].UserID, snaps[1].UserID)
	}
}

func TestStore_GetManyDropsExpired(t *testing.T) {
	s, clock := newTestStore(30 * time.Second)

	s.Upsert("a", StatusOnline, 2*time.Second, nil)
	s.Upsert("b", StatusOnline, 10*time.Second, nil)
	clock.Advance(3 * time.Second)

	snaps := s.GetMany([]string{"a", "b"})
	if len(snaps) != 1 || snaps[0].UserID != "b" {
		t.Fatalf("Expected only b to survive, got %v", snaps)
	}
}

func TestStore_CleanupExpired(t *testing.T) {
	s, clock := newTestStore(30 * time.Second)

	s.Upsert("a", StatusOnline, 2*time.Second, nil)
	s.Upsert("b", StatusOnline, 10*time.Second, nil)
	s.Upsert("c", StatusAway, 2*time.Second, nil)
	clock.Advance(5 * time.Second)

	removed := s.CleanupExpired()
	if len(removed) != 2 {
		t.Fatalf("Expected 2 removed, got %d", len(removed))
	}
	for _, rec := range removed {
		if rec.UserID == "b" {
			t.Error("Expected b to survive the sweep")
		}
	}
	if s.Size() != 1 {
		t.Errorf("Expected size 1 after sweep, got %d", s.Size())
	}
}

func TestStore_CleanupExpiredEmpty(t *testing.T) {
	s, _ := newTestStore(30 * time.Second)

	if removed := s.CleanupExpired(); len(removed) != 0 {
		t.Errorf("Expected no removals on empty store, got %d", len(removed))
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore(30 * time.Second)

	done := make(chan struct{}, 3)
	go func() {
		for i := 0; i < 1000; i++ {
			s.Upsert("user-"+strconv.Itoa(i%10), StatusOnline, 0, nil)
		}
		done <- struct{}{}
	}()
	go func() {
		for i := 0; i < 1000; i++ {
			s.GetOne("user-" + strconv.Itoa(i%10))
		}
		done <- struct{}{}
	}()
	go func() {
		for i := 0; i < 100; i++ {
			s.CleanupExpired()
			s.Size()
		}
		done <- struct{}{}
	}()
	for i := 0; i < 3; i++ {
		<-done
	}
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusOnline, StatusAway, StatusBusy} {
		if !s.Valid() {
			t.Errorf("Expected %s to be valid", s)
		}
	}
	if StatusOffline.Valid() {
		t.Error("Expected offline to be non-storable")
	}
	if Status("invisible").Valid() {
		t.Error("Expected unknown status to be invalid")
	}
}
