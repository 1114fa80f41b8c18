package gallery

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrNotFound is returned when a design does not exist.
var ErrNotFound = errors.New("design not found")

// Status is a design's moderation state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates s.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("invalid design status %q", s)
}

// Design is a published decal.
type Design struct {
	ID               string    `json:"id" bson:"_id"`
	Title            string    `json:"title" bson:"title"`
	Prompt           string    `json:"prompt" bson:"prompt"`
	Tags             []string  `json:"tags" bson:"tags"`
	ImageURI         string    `json:"imageUri" bson:"image_uri"`
	AuthorID         string    `json:"authorId" bson:"author_id"`
	Status           Status    `json:"status" bson:"status"`
	ModerationReason string    `json:"moderationReason,omitempty" bson:"moderation_reason,omitempty"`
	CreatedAt        time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" bson:"updated_at"`
}

// Filter selects designs. Zero fields match everything.
type Filter struct {
	Status   Status
	Tag      string
	AuthorID string
	// Limit caps the result size, 0 means DefaultLimit.
	Limit int
}

// DefaultLimit is the page size used when Filter.Limit is zero.
const DefaultLimit = 50

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultLimit
	}
	return f.Limit
}

func (f Filter) matches(d *Design) bool {
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.AuthorID != "" && d.AuthorID != f.AuthorID {
		return false
	}
	if f.Tag != "" && !slices.Contains(d.Tags, f.Tag) {
		return false
	}
	return true
}

// Store persists designs. List returns designs newest first.
type Store interface {
	Save(ctx context.Context, d *Design) error
	Get(ctx context.Context, id string) (*Design, error)
	List(ctx context.Context, f Filter) ([]*Design, error)
	UpdateStatus(ctx context.Context, id string, status Status, reason string) (*Design, error)
}

func (d *Design) clone() *Design {
	cp := *d
	cp.Tags = slices.Clone(d.Tags)
	return &cp
}
