package coverset

import (
	"context"
	"log/slog"
	"sync"
)

// Loader reads a persisted cover set. It returns an empty set for a project
// without covers.
type Loader interface {
	LoadCoverSet(ctx context.Context, projectID string) (CoverSet, error)
}

// Store loads and saves cover sets.
type Store interface {
	Loader
	Persister
}

// Registry owns one Manager per project.
type Registry struct {
	mu       sync.Mutex
	managers map[string]*Manager
	store    Store
	emitter  Emitter
	logger   *slog.Logger
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store Store, emitter Emitter, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		managers: make(map[string]*Manager),
		store:    store,
		emitter:  emitter,
		logger:   logger,
	}
}

// Get returns the manager for projectID, loading its set on first use.
func (r *Registry) Get(ctx context.Context, projectID string) (*Manager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.managers[projectID]; ok {
		return m, nil
	}

	set, err := r.store.LoadCoverSet(ctx, projectID)
	if err != nil {
		return nil, err
	}
	set.ProjectID = projectID

	m := NewManager(set, r.store, r.emitter, r.logger)
	r.managers[projectID] = m
	return m, nil
}

// Forget stops and drops the manager for projectID.
func (r *Registry) Forget(projectID string) {
	r.mu.Lock()
	m, ok := r.managers[projectID]
	delete(r.managers, projectID)
	r.mu.Unlock()

	if ok {
		m.Close()
	}
}

// Close stops every manager.
func (r *Registry) Close() {
	r.mu.Lock()
	managers := r.managers
	r.managers = make(map[string]*Manager)
	r.mu.Unlock()

	for _, m := range managers {
		m.Close()
	}
}
