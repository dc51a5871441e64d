package blob

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

func openLocal(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "blob: open %q", path)
	}
	return f, nil
}

func createLocal(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "blob: create %q", path)
	}
	return f, nil
}
