package reconciler

import "sync"

// Guard serializes reconciliations of the same entry name within one
// process. The lookup-then-create sequence is a check-then-act race: two
// concurrent reconciliations of one name can both observe "absent" and both
// create, leaving the remote catalog in the duplicate state that later
// lookups reject as ambiguous. The guard closes that window inside a single
// process only; callers that share a remote catalog across processes must
// serialize externally.
type Guard struct {
	mu    sync.Mutex
	names map[string]*guardEntry
}

type guardEntry struct {
	mu   sync.Mutex
	refs int
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{
		names: make(map[string]*guardEntry),
	}
}

// Acquire blocks until the named slot is free and returns its release
// function. Entries are reference counted so the map does not grow without
// bound across many distinct names.
func (g *Guard) Acquire(name string) func() {
	g.mu.Lock()
	entry, ok := g.names[name]
	if !ok {
		entry = &guardEntry{}
		g.names[name] = entry
	}
	entry.refs++
	g.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		g.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(g.names, name)
		}
		g.mu.Unlock()
	}
}
