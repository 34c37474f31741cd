package notes

import (
	"sync"
	"time"
)

type guardState int

const (
	guardIdle guardState = iota
	guardPending
	guardCoolingDown
)

// singleFlight is the per-note guard for UI-exclusive toggles. A note in
// Pending or CoolingDown absorbs repeated invocations as no-ops; the
// cooldown window soaks up rapid double-submissions after completion.
type singleFlight struct {
	mu       sync.Mutex
	states   map[int64]guardState
	cooldown time.Duration

	// afterFunc is swappable so tests can fire the cooldown synchronously.
	afterFunc func(d time.Duration, fn func()) *time.Timer
}

func newSingleFlight(cooldown time.Duration) *singleFlight {
	return &singleFlight{
		states:    make(map[int64]guardState),
		cooldown:  cooldown,
		afterFunc: time.AfterFunc,
	}
}

// tryAcquire moves the note from Idle to Pending. It returns false if the
// note is already Pending or CoolingDown.
func (g *singleFlight) tryAcquire(noteID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.states[noteID] != guardIdle {
		return false
	}
	g.states[noteID] = guardPending
	return true
}

// release moves the note from Pending to CoolingDown and schedules the
// timer-driven transition back to Idle.
func (g *singleFlight) release(noteID int64) {
	g.mu.Lock()
	g.states[noteID] = guardCoolingDown
	g.mu.Unlock()

	g.afterFunc(g.cooldown, func() {
		g.mu.Lock()
		if g.states[noteID] == guardCoolingDown {
			delete(g.states, noteID)
		}
		g.mu.Unlock()
	})
}

func (g *singleFlight) state(noteID int64) guardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.states[noteID]
}
