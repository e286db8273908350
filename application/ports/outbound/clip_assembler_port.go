package outbound

import "context"

// ClipAssemblerPort concatenates clip URLs, in the given order, into one
// local file and returns its path. The caller owns uploading and removing
// the file.
type ClipAssemblerPort interface {
	Assemble(ctx context.Context, clipURLs []string) (string, error)
}
