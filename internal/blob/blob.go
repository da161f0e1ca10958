// Package blob stores uploaded files and hands back stable URLs
// that can be embedded in records.
package blob

import (
	"context"
	"io"
)

// File is a single upload. Size must match the number of bytes the
// reader yields.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Uploader persists files and returns a URL for each.
type Uploader interface {
	Upload(ctx context.Context, f File) (string, error)
}
