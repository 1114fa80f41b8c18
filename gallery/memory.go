package gallery

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// InMemoryStore is a process local Store. Designs are copied on the way in
// and out.
type InMemoryStore struct {
	mu      sync.RWMutex
	designs map[string]*Design
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{designs: make(map[string]*Design)}
}

// Save inserts or replaces d.
func (s *InMemoryStore) Save(ctx context.Context, d *Design) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.ID == "" {
		return errors.New("design id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.designs[d.ID] = d.clone()
	return nil
}

// Get returns the design or ErrNotFound.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*Design, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.designs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.clone(), nil
}

// List returns matching designs, newest first.
func (s *InMemoryStore) List(ctx context.Context, f Filter) ([]*Design, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]*Design, 0, len(s.designs))
	for _, d := range s.designs {
		if f.matches(d) {
			out = append(out, d.clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > f.limit() {
		out = out[:f.limit()]
	}
	return out, nil
}

// UpdateStatus sets the moderation status.
func (s *InMemoryStore) UpdateStatus(ctx context.Context, id string, status Status, reason string) (*Design, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.designs[id]
	if !ok {
		return nil, ErrNotFound
	}
	d.Status = status
	d.ModerationReason = reason
	d.UpdatedAt = time.Now().UTC()
	return d.clone(), nil
}
