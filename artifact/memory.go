package artifact

import (
	"context"
	"sort"
	"sync"
)

// MemoryScheme prefixes URIs returned by InMemoryStore.
const MemoryScheme = "memory://"

type storedArtifact struct {
	data        []byte
	contentType string
}

// InMemoryStore is an in-process core.ArtifactStore. It keeps all artifacts
// in a nested map guarded by an RWMutex. Data is copied on save and
// retrieval.
//
// Layout: namespace -> artifactID -> artifact
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]map[string]storedArtifact
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]map[string]storedArtifact)}
}

// Save stores (or overwrites) the artifact bytes and returns
// memory://<namespace>/<artifactID>.
func (a *InMemoryStore) Save(ctx context.Context, namespace, artifactID string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.artifacts[namespace]; !exists {
		a.artifacts[namespace] = make(map[string]storedArtifact)
	}
	a.artifacts[namespace][artifactID] = storedArtifact{data: clone(data), contentType: contentType}
	return MemoryScheme + namespace + "/" + artifactID, nil
}

// Get returns a copy of the stored artifact bytes or ErrNotFound.
func (a *InMemoryStore) Get(ctx context.Context, namespace, artifactID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	art, ok := a.artifacts[namespace][artifactID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(art.data), nil
}

// ContentType returns the content type recorded at save time.
func (a *InMemoryStore) ContentType(namespace, artifactID string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	art, ok := a.artifacts[namespace][artifactID]
	return art.contentType, ok
}

// List returns the sorted artifact ids stored in the namespace.
func (a *InMemoryStore) List(ctx context.Context, namespace string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	m := a.artifacts[namespace]
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the artifact if present or returns ErrNotFound.
func (a *InMemoryStore) Delete(ctx context.Context, namespace, artifactID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.artifacts[namespace]
	if !ok {
		return ErrNotFound
	}
	if _, ok := m[artifactID]; !ok {
		return ErrNotFound
	}
	delete(m, artifactID)
	return nil
}

func clone(b []byte) []byte {
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
