package driver

import (
	"context"
	"errors"
)

// ErrNotFound is returned (wrapped) by Read when no content exists for a key.
var ErrNotFound = errors.New("driver: not found")

// Driver reads and writes whole snapshots addressed by key.
type Driver interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}
