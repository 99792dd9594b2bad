// Package metadata stores small key/value blobs next to the record cache:
// the sync high-water mark and the quick-unlock blob. Clear wipes all of it
// on logout.
package metadata

import (
	"context"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
