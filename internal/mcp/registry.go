package mcp

import (
	"context"
	"sync"

	"github.com/a3tai/mcp-pdf-mapper/internal/mapping"
)

// SessionRegistry hands out one mapping session per template path.
// Sessions are created and loaded lazily on first use and reused across
// tool calls so in-progress edits survive between calls.
type SessionRegistry struct {
	mu         sync.Mutex
	sessions   map[string]*mapping.Session
	discoverer mapping.Discoverer
	persister  mapping.Persister
}

// NewSessionRegistry creates an empty registry backed by the given
// collaborators.
func NewSessionRegistry(discoverer mapping.Discoverer, persister mapping.Persister) *SessionRegistry {
	return &SessionRegistry{
		sessions:   make(map[string]*mapping.Session),
		discoverer: discoverer,
		persister:  persister,
	}
}

// Get returns the session for the template, loading it on first use.
// A session whose initial load failed is retried on the next Get.
func (r *SessionRegistry) Get(ctx context.Context, templatePath string) (*mapping.Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[templatePath]
	if !ok {
		s = mapping.NewSession(templatePath, r.discoverer, r.persister)
		r.sessions[templatePath] = s
	}
	r.mu.Unlock()

	switch s.State() {
	case mapping.StateLoading:
		if err := s.Load(ctx); err != nil {
			return nil, err
		}
	case mapping.StateFailed:
		if s.Catalog() == nil {
			// Load never succeeded; try again rather than pinning the
			// template to a dead session.
			if err := s.Load(ctx); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Reload discards any in-memory session state for the template and loads
// it fresh from the collaborators.
func (r *SessionRegistry) Reload(ctx context.Context, templatePath string) (*mapping.Session, error) {
	s := mapping.NewSession(templatePath, r.discoverer, r.persister)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[templatePath] = s
	r.mu.Unlock()
	return s, nil
}

// Len reports the number of tracked sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
