package capture

import "sync"

// Registry owns the zone id → live session mapping. At most one session
// per zone is guaranteed by map semantics: every creation goes through
// Put and every terminal transition goes through Remove, whose
// first-caller-wins result is the commit point for re-entrant triggers.
// Thread-safe: protected by mu.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session, 16)}
}

// Put registers a session for its zone. Returns false if the zone
// already has a live session (the existing session is kept).
func (r *Registry) Put(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ZoneID()]; exists {
		return false
	}
	r.sessions[s.ZoneID()] = s
	return true
}

// Get returns the live session for a zone, or nil.
func (r *Registry) Get(zoneID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[zoneID]
}

// Remove unregisters and returns the zone's session. The second return
// is false when no session was live: concurrent terminal transitions
// observe this and become no-ops.
func (r *Registry) Remove(zoneID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[zoneID]
	if !ok {
		return nil, false
	}
	delete(r.sessions, zoneID)
	return s, true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sessions returns a snapshot of all live sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s)
	}
	return result
}
