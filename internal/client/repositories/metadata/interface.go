// Package metadata provides the key/value repositories that back the
// persisted client state. Multi-key writes and deletes are atomic: a reader
// observes either all of them or none.
package metadata

import (
	"context"
)

type Repository interface {
	// GetMany returns the values of the requested keys. Absent keys are
	// omitted from the result rather than reported as errors.
	GetMany(ctx context.Context, keys ...string) (map[string][]byte, error)
	// SetMany upserts all entries in one atomic operation.
	SetMany(ctx context.Context, entries map[string][]byte) error
	// DeleteMany removes all keys in one atomic operation. Absent keys are ignored.
	DeleteMany(ctx context.Context, keys ...string) error
}
