package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a media id does not exist.
var ErrNotFound = errors.New("store: media not found")

// ListFilter pages through media records, newest first.
type ListFilter struct {
	Limit  int
	Offset int
}

func (f ListFilter) limit() int {
	if f.Limit <= 0 || f.Limit > 500 {
		return 100
	}
	return f.Limit
}

func (f ListFilter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}

// Store persists media records.
type Store interface {
	Migrate(ctx context.Context) error
	Create(ctx context.Context, filename string) (*Media, error)
	Get(ctx context.Context, id string) (*Media, error)
	List(ctx context.Context, filter ListFilter) ([]Media, error)
	// Save writes the position and filename of an existing record.
	Save(ctx context.Context, media *Media) error
	Close() error
}
