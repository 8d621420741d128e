package service

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mash-protocol/netcomm-go/pkg/timed"
)

// windowRoute ties a dispatch id to the connection guard and wire exchange
// the invoke arrived on.
type windowRoute struct {
	guard      *timed.Guard
	exchangeID uint32
}

// windowRouter is the engine's WindowChecker. Exchange ids are chosen by
// controllers and repeat across connections, so each invoke gets a
// device-unique dispatch id and the router maps it back to its guard.
type windowRouter struct {
	next   atomic.Uint32
	mu     sync.Mutex
	routes map[uint32]windowRoute
}

func newWindowRouter() *windowRouter {
	return &windowRouter{routes: make(map[uint32]windowRoute)}
}

// bind allocates a dispatch id for an invoke. Zero is never used.
func (r *windowRouter) bind(g *timed.Guard, exchangeID uint32) uint32 {
	id := r.next.Add(1)
	if id == 0 {
		id = r.next.Add(1)
	}
	r.mu.Lock()
	r.routes[id] = windowRoute{guard: g, exchangeID: exchangeID}
	r.mu.Unlock()
	return id
}

func (r *windowRouter) release(id uint32) {
	r.mu.Lock()
	delete(r.routes, id)
	r.mu.Unlock()
}

// CheckWindow implements netcommissioning.WindowChecker.
func (r *windowRouter) CheckWindow(dispatchID uint32, now time.Time) error {
	r.mu.Lock()
	route, ok := r.routes[dispatchID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: dispatch %d", timed.ErrNoWindow, dispatchID)
	}
	return route.guard.CheckWindow(route.exchangeID, now)
}
