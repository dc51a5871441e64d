package blob

import (
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// gzipReadCloser and gzipWriteCloser wrap a raw stream with
// klauspost/compress/gzip, a drop-in faster replacement for the
// standard library's compress/gzip.

type gzipReadCloser struct {
	gz  *gzip.Reader
	raw io.ReadCloser
}

func newGzipReadCloser(raw io.ReadCloser, path string) (io.ReadCloser, error) {
	gz, err := gzip.NewReader(raw)
	if err != nil {
		raw.Close()
		return nil, errors.Wrapf(err, "blob: open gzip stream %q", path)
	}
	return &gzipReadCloser{gz: gz, raw: raw}, nil
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	rawErr := g.raw.Close()
	if gzErr != nil {
		return gzErr
	}
	return rawErr
}

type gzipWriteCloser struct {
	gz  *gzip.Writer
	raw io.WriteCloser
}

func newGzipWriteCloser(raw io.WriteCloser) io.WriteCloser {
	return &gzipWriteCloser{gz: gzip.NewWriter(raw), raw: raw}
}

func (g *gzipWriteCloser) Write(p []byte) (int, error) { return g.gz.Write(p) }

func (g *gzipWriteCloser) Close() error {
	gzErr := g.gz.Close()
	rawErr := g.raw.Close()
	if gzErr != nil {
		return gzErr
	}
	return rawErr
}

// Terminate aborts the underlying stream instead of completing it, if
// raw supports that; otherwise it just closes raw, since there's
// nothing else to undo for a local file.
func (g *gzipWriteCloser) Terminate() error {
	if t, ok := g.raw.(interface{ Terminate() error }); ok {
		return t.Terminate()
	}
	return g.raw.Close()
}
