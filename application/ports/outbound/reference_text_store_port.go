package outbound

import "context"

// ReferenceTextStorePort batch-fetches reference text bodies. Missing ids
// are silently skipped; enrichment is best effort.
type ReferenceTextStorePort interface {
	GetTexts(ctx context.Context, ids []string) ([]string, error)
}
