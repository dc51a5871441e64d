package join

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/grailbio/datawelder/blob"
)

// Concatenate strictly byte-concatenates srcPaths, in order, into
// dest. Output formats with a header row rely on only the first
// source (shard 0) having written one; Concatenate itself is
// encoding-agnostic and performs no parsing.
func Concatenate(ctx context.Context, srcPaths []string, dest string) error {
	out, err := blob.Create(ctx, dest)
	if err != nil {
		return errors.Wrap(err, "join: create destination")
	}

	for i, path := range srcPaths {
		if err := appendFile(out, path); err != nil {
			out.Close()
			return errors.Wrapf(err, "join: concatenate shard %d", i)
		}
	}
	return out.Close()
}

func appendFile(dst io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(dst, f)
	return err
}
