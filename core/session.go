package core

import (
	"context"
	"sync"
	"time"
)

// CartItem is a design placed in a shopping session's cart.
type CartItem struct {
	DesignID string `json:"designId"`
	Title    string `json:"title,omitempty"`
	ImageURI string `json:"imageUri,omitempty"`
	Quantity int    `json:"quantity"`
}

// Session is a shopping session holding a cart. It is safe for concurrent
// access.
//
// Contract:
//   - Mutations update the Updated timestamp
//   - Adding a design already in the cart increases its quantity
//   - Items returns a copy
//   - Clone performs a deep copy for safe divergence.
type Session struct {
	ID       string            `json:"id"`
	Items    []CartItem        `json:"items"`
	Created  time.Time         `json:"created"`
	Updated  time.Time         `json:"updated"`
	Metadata map[string]string `json:"metadata,omitempty"`
	mu       sync.RWMutex
}

// NewSession creates an empty session with the given ID.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{ID: id, Items: []CartItem{}, Created: now, Updated: now, Metadata: map[string]string{}}
}

// AddItem puts item into the cart, merging quantities for a design already
// present. Quantities below one count as one.
func (s *Session) AddItem(item CartItem) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Items {
		if s.Items[i].DesignID == item.DesignID {
			s.Items[i].Quantity += item.Quantity
			s.Updated = time.Now()
			return
		}
	}
	s.Items = append(s.Items, item)
	s.Updated = time.Now()
}

// RemoveItem drops the design from the cart and reports whether it was
// present.
func (s *Session) RemoveItem(designID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Items {
		if s.Items[i].DesignID == designID {
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
			s.Updated = time.Now()
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Items = []CartItem{}
	s.Updated = time.Now()
}

// GetItems returns a copy of the cart items.
func (s *Session) GetItems() []CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]CartItem, len(s.Items))
	copy(items, s.Items)
	return items
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{ID: s.ID, Items: make([]CartItem, len(s.Items)), Created: s.Created, Updated: s.Updated, Metadata: make(map[string]string, len(s.Metadata))}
	copy(clone.Items, s.Items)
	for k, v := range s.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}

// SessionStore persists shopping sessions. Get creates missing sessions
// lazily; returned sessions are snapshots and mutating them has no effect
// on the store.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	AddItem(ctx context.Context, id string, item CartItem) (*Session, error)
	RemoveItem(ctx context.Context, id, designID string) (*Session, error)
	Clear(ctx context.Context, id string) error
}
