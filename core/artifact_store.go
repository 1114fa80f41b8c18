package core

import "context"

// ArtifactStore defines the interface for binary artifact persistence
// (generated decal images, narration audio). Implementations must be
// goroutine-safe and scope artifacts by namespace. Save returns a URI under
// which the artifact can later be referenced.
type ArtifactStore interface {
	Save(ctx context.Context, namespace, artifactID string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, namespace, artifactID string) ([]byte, error)
	List(ctx context.Context, namespace string) ([]string, error)
	Delete(ctx context.Context, namespace, artifactID string) error
}
