// Package storage defines where finished reports are written.
package storage

import (
	"context"
	"io"
)

// BlobStore persists a report under path and returns a URI for it.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}
