package correlation

import (
	"errors"
	"sync"
	"testing"
)

func TestRegisterResolve(t *testing.T) {
	tbl := NewTable[string]()

	if err := tbl.Register(1, 10, "a"); err != nil {
		t.Fatalf("Register() = %v", err)
	}
	if err := tbl.Register(1, 10, "b"); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("duplicate Register() = %v, want ErrAlreadyRegistered", err)
	}
	if err := tbl.Register(2, 10, "c"); err != nil {
		t.Errorf("same sequence, other peer: %v", err)
	}

	v, err := tbl.Resolve(1, 10)
	if err != nil || v != "a" {
		t.Errorf("Resolve() = %q, %v, want a, nil", v, err)
	}
	if _, err := tbl.Resolve(1, 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Resolve() = %v, want ErrNotFound", err)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

func TestCancel(t *testing.T) {
	tbl := NewTable[int]()
	tbl.Register(1, 1, 1)
	tbl.Register(1, 2, 2)
	tbl.Register(2, 1, 3)

	if !tbl.Cancel(1, 1) {
		t.Error("Cancel() = false for registered key")
	}
	if tbl.Cancel(1, 1) {
		t.Error("Cancel() = true for removed key")
	}

	got := tbl.CancelPeer(1)
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("CancelPeer(1) = %v, want [2]", got)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

func TestConcurrentResolveOnce(t *testing.T) {
	tbl := NewTable[int]()
	tbl.Register(7, 7, 42)

	var wg sync.WaitGroup
	var mu sync.Mutex
	hits := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tbl.Resolve(7, 7); err == nil {
				mu.Lock()
				hits++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if hits != 1 {
		t.Errorf("resolved %d times, want 1", hits)
	}
}
