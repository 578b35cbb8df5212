package comparison

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryRepository keeps comparisons in a map. Used in tests and when no
// database is configured.
type InMemoryRepository struct {
	mu          sync.RWMutex
	comparisons map[string]*SavedComparison
}

// NewInMemoryRepository creates a new in-memory comparison repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		comparisons: make(map[string]*SavedComparison),
	}
}

// Create stores a copy of c.
func (r *InMemoryRepository) Create(_ context.Context, c *SavedComparison) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.comparisons[c.ID]; ok {
		return fmt.Errorf("comparison %s already exists", c.ID)
	}
	if c.Name == "" {
		c.Name = AutoName(len(r.comparisons) + 1)
	}
	r.comparisons[c.ID] = c.clone()
	return nil
}

// Get retrieves a comparison by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*SavedComparison, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.comparisons[id]
	if !ok {
		return nil, ErrComparisonNotFound
	}
	return c.clone(), nil
}

// List retrieves comparisons newest first.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	all := make([]*SavedComparison, 0, len(r.comparisons))
	for _, c := range r.comparisons {
		all = append(all, c.clone())
	}
	r.mu.RUnlock()

	sortNewestFirst(all)

	if opts.Cursor != "" {
		start := len(all)
		for i, c := range all {
			if c.ID == opts.Cursor {
				start = i + 1
				break
			}
		}
		all = all[start:]
	}

	limit := opts.limit()
	if len(all) > limit+1 {
		all = all[:limit+1]
	}
	return page(all, limit), nil
}

// Count returns the number of stored comparisons.
func (r *InMemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.comparisons), nil
}

// Delete removes a comparison by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.comparisons[id]; !ok {
		return ErrComparisonNotFound
	}
	delete(r.comparisons, id)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
