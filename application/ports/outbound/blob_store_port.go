package outbound

import (
	"context"
	"io"
)

// BlobStorePort uploads generated assets and returns a stable URL.
// DeletePrefix removes every object under a run's key prefix when the run
// is deleted; failures there are logged, not surfaced.
type BlobStorePort interface {
	Upload(ctx context.Context, key string, body io.Reader, length int64) (string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}
