// Package town defines the faction directory collaborator: which town
// an actor belongs to, and which towns exist. Absence of a town is a
// normal outcome, not an error.
package town

import "sync"

// Directory resolves actor → town membership.
type Directory interface {
	// TownOf returns the actor's town, or "" if the actor is townless.
	TownOf(actorID string) string
	// TownExists reports whether a town with the given name exists.
	TownExists(name string) bool
}

// Memory is an in-memory town directory.
// Thread-safe: protected by mu.
type Memory struct {
	mu      sync.RWMutex
	members map[string]string   // actorID → town
	towns   map[string]struct{} // known town names
}

// NewMemory creates an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{
		members: make(map[string]string, 64),
		towns:   make(map[string]struct{}, 16),
	}
}

// AddTown registers a town.
func (m *Memory) AddTown(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.towns[name] = struct{}{}
}

// SetMember assigns an actor to a town, registering the town as needed.
// An empty town name removes the membership.
func (m *Memory) SetMember(actorID, townName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if townName == "" {
		delete(m.members, actorID)
		return
	}
	m.towns[townName] = struct{}{}
	m.members[actorID] = townName
}

// TownOf returns the actor's town, or "" if the actor is townless.
func (m *Memory) TownOf(actorID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.members[actorID]
}

// TownExists reports whether the town is known.
func (m *Memory) TownExists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.towns[name]
	return ok
}
