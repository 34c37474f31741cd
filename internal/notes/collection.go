package notes

import (
	"sync"

	"github.com/hoffkamp/bureau/internal/model"
)

// Collection is the client-visible note set. Every mutation goes through
// it first (optimistically) and listeners are notified after each change.
type Collection struct {
	mu        sync.RWMutex
	notes     map[int64]model.Note
	listeners map[int]func()
	nextSub   int
}

func NewCollection() *Collection {
	return &Collection{
		notes:     make(map[int64]model.Note),
		listeners: make(map[int]func()),
	}
}

// Subscribe registers a listener called after every change. The returned
// function removes the listener.
func (c *Collection) Subscribe(fn func()) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Collection) notify() {
	c.mu.RLock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// Get returns a copy of the note, if present.
func (c *Collection) Get(id int64) (model.Note, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.notes[id]
	return n, ok
}

// All returns a copy of every note in the collection.
func (c *Collection) All() []model.Note {
	c.mu.RLock()
	out := make([]model.Note, 0, len(c.notes))
	for _, n := range c.notes {
		out = append(out, n)
	}
	c.mu.RUnlock()
	return out
}

// Replace swaps the entire collection for a freshly resolved visible set.
func (c *Collection) Replace(notes []model.Note) {
	c.mu.Lock()
	c.notes = make(map[int64]model.Note, len(notes))
	for _, n := range notes {
		c.notes[n.ID] = n
	}
	c.mu.Unlock()
	c.notify()
}

// Set inserts or overwrites a single note with authoritative state.
func (c *Collection) Set(n model.Note) {
	c.mu.Lock()
	c.notes[n.ID] = n
	c.mu.Unlock()
	c.notify()
}

// Remove drops a note from the visible set.
func (c *Collection) Remove(id int64) {
	c.mu.Lock()
	delete(c.notes, id)
	c.mu.Unlock()
	c.notify()
}

// ApplyPatch applies the patch to a note and returns the note's state
// before the patch, for rollback. ok is false if the note is unknown.
func (c *Collection) ApplyPatch(id int64, patch model.NotePatch) (prev model.Note, ok bool) {
	c.mu.Lock()
	n, ok := c.notes[id]
	if !ok {
		c.mu.Unlock()
		return model.Note{}, false
	}
	prev = n
	patch.Apply(&n)
	c.notes[id] = n
	c.mu.Unlock()
	c.notify()
	return prev, true
}
