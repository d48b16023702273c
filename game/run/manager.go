package run

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/dragster/game/service"
)

// ErrInvalidRunID is returned for identifiers that are not UUIDs.
var ErrInvalidRunID = errors.New("invalid run ID")

// Manager keeps run records in memory and mirrors them to persistence
type Manager struct {
	runs        map[string]*service.Run
	persistence Persistence
	mu          sync.RWMutex
}

// NewManager creates an in-memory run manager
func NewManager() *Manager {
	return &Manager{
		runs: make(map[string]*service.Run),
	}
}

// NewManagerWithPersistence creates a run manager and loads persisted runs
func NewManagerWithPersistence(persistence Persistence) (*Manager, error) {
	m := &Manager{
		runs:        make(map[string]*service.Run),
		persistence: persistence,
	}
	if err := m.LoadPersisted(); err != nil {
		return nil, err
	}
	return m, nil
}

// Create stores a new run, assigning an ID when it has none
func (m *Manager) Create(r *service.Run) (*service.Run, error) {
	stored := r.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	} else if _, err := uuid.Parse(stored.ID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRunID, stored.ID)
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[stored.ID]; exists {
		return nil, service.ErrRunAlreadyExists
	}
	m.runs[stored.ID] = stored
	m.save(stored)

	return stored.Clone(), nil
}

// Get returns a copy of a run, loading it from persistence if needed
func (m *Manager) Get(id string) (*service.Run, error) {
	m.mu.RLock()
	r, ok := m.runs[id]
	m.mu.RUnlock()
	if ok {
		return r.Clone(), nil
	}

	if m.persistence == nil {
		return nil, service.ErrRunNotFound
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, service.ErrRunNotFound
	}

	loaded, err := m.persistence.Load(id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.runs[id]; ok {
		return existing.Clone(), nil
	}
	m.runs[id] = loaded
	return loaded.Clone(), nil
}

// List returns copies of all runs, oldest first
func (m *Manager) List() []*service.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Run, 0, len(m.runs))
	for _, r := range m.runs {
		result = append(result, r.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Update applies fn to a run under the manager lock and persists the result
func (m *Manager) Update(id string, fn func(*service.Run)) (*service.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[id]
	if !ok {
		return nil, service.ErrRunNotFound
	}
	fn(r)
	r.ID = id
	m.save(r)

	return r.Clone(), nil
}

// Delete removes a run from memory and persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, inMemory := m.runs[id]
	delete(m.runs, id)

	if _, err := uuid.Parse(id); err != nil {
		if !inMemory {
			return service.ErrRunNotFound
		}
		return nil
	}

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted run: %w", err)
		}
		return nil
	}
	if !inMemory {
		return service.ErrRunNotFound
	}
	return nil
}

// Count returns the number of runs in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}

// LoadPersisted loads every persisted run. Runs that were still pending or
// running belong to a previous process and are marked failed.
func (m *Manager) LoadPersisted() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted runs: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		if _, ok := m.runs[id]; ok {
			continue
		}
		r, err := m.persistence.Load(id)
		if err != nil {
			log.Printf("Warning: failed to load run %s: %v", id, err)
			continue
		}
		if !r.Status.Terminal() {
			now := time.Now()
			r.Status = service.RunFailed
			r.Error = "interrupted by restart"
			r.CompletedAt = &now
			m.save(r)
		}
		m.runs[r.ID] = r
	}
	return nil
}

// save persists a run; failures are logged, the in-memory record stays authoritative.
func (m *Manager) save(r *service.Run) {
	if m.persistence == nil {
		return
	}
	if err := m.persistence.Save(r); err != nil {
		log.Printf("Warning: failed to persist run %s: %v", r.ID, err)
	}
}
