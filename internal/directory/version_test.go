package directory

import (
	"sync"
	"testing"
)

func TestVersion_Bump(t *testing.T) {
	var v Version
	if v.Current() != 0 {
		t.Errorf("Expected zero value version 0, got %d", v.Current())
	}

	v.Bump()
	v.Bump()
	if v.Current() != 2 {
		t.Errorf("Expected version 2, got %d", v.Current())
	}
}

func TestVersion_ConcurrentBumps(t *testing.T) {
	var v Version
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v.Bump()
			}
		}()
	}
	wg.Wait()

	if v.Current() != 1000 {
		t.Errorf("Expected version 1000, got %d", v.Current())
	}
}
