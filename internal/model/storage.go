package model

import (
	"context"
	"io"
)

// Storage is an object store used for archiving documents.
type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader) error
	Exists(ctx context.Context, key string) (bool, error)
}
