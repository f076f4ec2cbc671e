// Package provider reads protocol files and writes audit exports on local
// disk or S3.
package provider

import (
	"context"
	"io"
	"time"
)

// FileInfo represents the metadata of a protocol or export object.
type FileInfo interface {
	Name() string
	Size() int64
	ModTime() time.Time
}

// Provider represents a storage backend abstraction.
type Provider interface {
	// Stat returns the FileInfo for the given path.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// OpenRead opens an object for streaming reads.
	OpenRead(ctx context.Context, path string) (io.ReadCloser, error)

	// OpenWrite opens an object for streaming writes. The object is only
	// complete once Close returns nil; the writer also implements Aborter.
	OpenWrite(ctx context.Context, path string) (io.WriteCloser, error)
}

// Aborter is implemented by writers that can discard a partial object
// instead of publishing it.
type Aborter interface {
	Abort() error
}

// Abort discards the object being written to w. Writers that cannot abort
// are closed.
func Abort(w io.WriteCloser) error {
	if a, ok := w.(Aborter); ok {
		return a.Abort()
	}
	return w.Close()
}

type fileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (f *fileInfo) Name() string       { return f.name }
func (f *fileInfo) Size() int64        { return f.size }
func (f *fileInfo) ModTime() time.Time { return f.modTime }
