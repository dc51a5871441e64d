// Package blob implements the byte-stream abstraction the rest of
// this module reads and writes through: opening a path must
// transparently support the local filesystem, s3:// object-store
// URIs, and transparent gzip compression when the path ends in .gz.
//
// The shape of Open/Create mirrors github.com/grailbio/base/file
// (scheme-dispatched, plain io.ReadCloser/io.WriteCloser results)
// rather than introducing a bespoke filesystem interface.
package blob

import (
	"context"
	"io"
	"strings"
)

// Open opens path for sequential reading. Object-store URIs
// (s3://bucket/key) are fetched through the s3 backend; anything else
// is treated as a local filesystem path. A .gz suffix transparently
// wraps the stream in a gzip reader.
func Open(ctx context.Context, path string) (io.ReadCloser, error) {
	raw, err := openRaw(ctx, path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return raw, nil
	}
	return newGzipReadCloser(raw, path)
}

// Create opens path for sequential, append-only writing, truncating
// any previous contents. A .gz suffix transparently wraps the stream
// in a gzip writer. Callers must Close the result to flush buffered
// data (and, for s3:// destinations, to complete the multipart
// upload); an error from Close is fatal and must not be ignored.
func Create(ctx context.Context, path string) (io.WriteCloser, error) {
	raw, err := createRaw(ctx, path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return raw, nil
	}
	return newGzipWriteCloser(raw), nil
}

func openRaw(ctx context.Context, path string) (io.ReadCloser, error) {
	if IsObjectStoreURI(path) {
		return openS3(ctx, path)
	}
	return openLocal(path)
}

func createRaw(ctx context.Context, path string) (io.WriteCloser, error) {
	if IsObjectStoreURI(path) {
		return createS3(ctx, path)
	}
	return createLocal(path)
}

// IsObjectStoreURI reports whether path names an s3:// object.
func IsObjectStoreURI(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// Terminator is implemented by writers that can abort a partially
// written destination instead of completing it, such as an
// in-progress S3 multipart upload.
type Terminator interface {
	Terminate() error
}

// Abort terminates wc if it supports aborting a partial write,
// otherwise it falls back to Close. Callers use this in place of
// Close on a failure path, so a half-written destination is left
// incomplete rather than finalized.
func Abort(wc io.WriteCloser) error {
	if t, ok := wc.(Terminator); ok {
		return t.Terminate()
	}
	return wc.Close()
}
