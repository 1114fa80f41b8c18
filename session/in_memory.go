package session

import (
	"context"
	"sync"

	"github.com/hupe1980/decalflow/core"
)

// InMemoryStore is a volatile core.SessionStore storing sessions in a
// process local map. It is safe for concurrent access. Each returned session
// is cloned to prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*core.Session
}

var _ core.SessionStore = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Get returns a snapshot of the session, creating it lazily.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(id).Clone(), nil
}

// AddItem adds item to the session's cart and returns the updated snapshot.
func (s *InMemoryStore) AddItem(ctx context.Context, id string, item core.CartItem) (*core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(id)
	sess.AddItem(item)
	return sess.Clone(), nil
}

// RemoveItem drops a design from the session's cart.
func (s *InMemoryStore) RemoveItem(ctx context.Context, id, designID string) (*core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(id)
	sess.RemoveItem(designID)
	return sess.Clone(), nil
}

// Clear empties the session's cart.
func (s *InMemoryStore) Clear(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.Clear()
	}
	return nil
}

func (s *InMemoryStore) getOrCreateLocked(id string) *core.Session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = core.NewSession(id)
		s.sessions[id] = sess
	}
	return sess
}
