package notes

import "sync"

// Factory builds a fresh engine for a user, loading their preferences
// and wiring the persistence layer. The manager reloads the engine after
// construction, so the factory does not have to.
type Factory func(userID int64) (*Engine, error)

// Manager holds one engine per signed-in user, built lazily on first
// use. It fans remote change notifications out to every live engine so
// server-side state stays in step with the database.
type Manager struct {
	mu      sync.Mutex
	factory Factory
	engines map[int64]*Engine
}

func NewManager(factory Factory) *Manager {
	return &Manager{
		factory: factory,
		engines: make(map[int64]*Engine),
	}
}

// Engine returns the user's engine, building and loading it on first
// access. A failed initial load is not cached, so the next request
// retries from scratch.
func (m *Manager) Engine(userID int64) (*Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if eng, ok := m.engines[userID]; ok {
		return eng, nil
	}

	eng, err := m.factory(userID)
	if err != nil {
		return nil, err
	}
	if err := eng.Reload(); err != nil {
		return nil, err
	}
	m.engines[userID] = eng
	return eng, nil
}

// NotifyChange tells every live engine except the actor's that ownerID's
// notes changed. The actor's engine already holds the optimistic state
// and must not be clobbered by a reload.
func (m *Manager) NotifyChange(ownerID, actorID int64) {
	m.mu.Lock()
	snapshot := make(map[int64]*Engine, len(m.engines))
	for id, eng := range m.engines {
		snapshot[id] = eng
	}
	m.mu.Unlock()

	for userID, eng := range snapshot {
		if userID == actorID {
			continue
		}
		eng.HandleRemoteChange(ownerID)
	}
}

// Drop discards the user's engine after flushing pending work. Called on
// logout and when preferences change, since preferences are fixed at
// engine construction.
func (m *Manager) Drop(userID int64) {
	m.mu.Lock()
	eng, ok := m.engines[userID]
	delete(m.engines, userID)
	m.mu.Unlock()

	if ok {
		eng.Flush()
	}
}

// Shutdown flushes every engine's pending reconciliations.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	engines := make([]*Engine, 0, len(m.engines))
	for _, eng := range m.engines {
		engines = append(engines, eng)
	}
	m.engines = make(map[int64]*Engine)
	m.mu.Unlock()

	for _, eng := range engines {
		eng.Flush()
	}
}
