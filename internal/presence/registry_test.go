package presence

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
)

// recordingSender captures updates for assertions.
type recordingSender struct {
	mu      sync.Mutex
	updates []Update
	fail    bool
}

func (s *recordingSender) Send(_ context.Context, update Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("connection closed")
	}
	s.updates = append(s.updates, update)
	return nil
}

func (s *recordingSender) Updates() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Update, len(s.updates))
	copy(out, s.updates)
	return out
}

func TestRegistry_SubscribeAndLookup(t *testing.T) {
	r := NewRegistry()
	sender := &recordingSender{}

	r.Subscribe("conn-1", sender, []string{"bob", "carol"})

	subs := r.SubscribersOf("bob")
	if len(subs) != 1 || subs[0].ConnID != "conn-1" {
		t.Fatalf("Expected conn-1 subscribed to bob, got %v", subs)
	}
	if got := r.SubscribersOf("dave"); got != nil {
		t.Errorf("Expected no subscribers for dave, got %v", got)
	}
}

func TestRegistry_SubscribeReplacesSet(t *testing.T) {
	r := NewRegistry()
	sender := &recordingSender{}

	r.Subscribe("conn-1", sender, []string{"bob"})
	r.Subscribe("conn-1", sender, []string{"carol"})

	if subs := r.SubscribersOf("bob"); len(subs) != 0 {
		t.Errorf("Expected bob subscription dropped after replace, got %v", subs)
	}
	if subs := r.SubscribersOf("carol"); len(subs) != 1 {
		t.Errorf("Expected carol subscribed, got %v", subs)
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	sender := &recordingSender{}

	r.Subscribe("conn-1", sender, []string{"bob"})
	r.Remove("conn-1")
	r.Remove("conn-1") // idempotent

	if subs := r.SubscribersOf("bob"); len(subs) != 0 {
		t.Errorf("Expected no subscribers after remove, got %v", subs)
	}
	if r.Size() != 0 {
		t.Errorf("Expected empty registry, got size %d", r.Size())
	}
}

func TestRegistry_MultipleSubscribers(t *testing.T) {
	r := NewRegistry()

	r.Subscribe("conn-1", &recordingSender{}, []string{"bob"})
	r.Subscribe("conn-2", &recordingSender{}, []string{"bob", "carol"})
	r.Subscribe("conn-3", &recordingSender{}, []string{"carol"})

	if subs := r.SubscribersOf("bob"); len(subs) != 2 {
		t.Errorf("Expected 2 subscribers for bob, got %d", len(subs))
	}
	if subs := r.SubscribersOf("carol"); len(subs) != 2 {
		t.Errorf("Expected 2 subscribers for carol, got %d", len(subs))
	}
}

func TestRegistry_IgnoresEmptyPeerIDs(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("conn-1", &recordingSender{}, []string{"", "bob"})

	if subs := r.SubscribersOf(""); len(subs) != 0 {
		t.Errorf("Expected empty peer id ignored, got %v", subs)
	}
	if subs := r.SubscribersOf("bob"); len(subs) != 1 {
		t.Errorf("Expected bob subscribed, got %v", subs)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			r.Subscribe("conn-"+strconv.Itoa(i%20), &recordingSender{}, []string{"bob"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			r.SubscribersOf("bob")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			r.Remove("conn-" + strconv.Itoa(i%20))
		}
	}()
	wg.Wait()
}
