package session

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry keeps the live sessions in memory. Nothing survives a restart.
type Registry struct {
	deps Dependencies

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry whose sessions share deps.
func NewRegistry(deps Dependencies) *Registry {
	return &Registry{deps: deps, sessions: make(map[string]*Session)}
}

// Create starts a new session.
func (r *Registry) Create() *Session {
	s := newSession(uuid.NewString(), r.deps)
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	s.logger.Info("session created")
	return s
}

// Get returns the session with id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete drops the session with id.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.logger.Info("session deleted")
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IDs returns the live session identifiers in lexical order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
