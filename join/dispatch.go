package join

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/grailbio/datawelder/dwerr"
	"github.com/grailbio/datawelder/frame"
	"github.com/grailbio/datawelder/record"
)

// Options configures a Run: the frames to join (left frame first),
// the output encoding, and the SELECT expression.
type Options struct {
	Frames     []*frame.Frame
	Format     record.Format
	FmtParams  map[string]string
	SelectExpr string
	// Workers bounds concurrent per-shard jobs (default
	// runtime.NumCPU(), 1 runs sequentially for deterministic
	// debugging).
	Workers int
}

// Run executes the full join described by opts and writes the result
// to dest, fanning the per-shard merge-join work out across a worker
// pool built on golang.org/x/sync/errgroup (so the first failing shard
// cancels the rest) and concatenating the per-shard outputs in shard
// order.
func Run(ctx context.Context, dest string, opts Options) error {
	if len(opts.Frames) < 2 {
		return errors.New("join: at least two frames are required")
	}

	numShards := opts.Frames[0].NumShards()
	for i, f := range opts.Frames[1:] {
		if f.NumShards() != numShards {
			return errors.Wrapf(dwerr.ErrShardCountMismatch, "frame %d has %d shards, frame 0 has %d", i+1, f.NumShards(), numShards)
		}
	}

	schemas := make([]record.Schema, len(opts.Frames))
	for i, f := range opts.Frames {
		schemas[i] = f.Schema()
	}
	layout, err := ResolveSelect(schemas, opts.SelectExpr)
	if err != nil {
		return err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > numShards {
		workers = numShards
	}
	if workers < 1 {
		workers = 1
	}

	tempDir, err := os.MkdirTemp("", "datawelder-"+uuid.New().String()[:8]+"-")
	if err != nil {
		return errors.Wrap(err, "join: create temp directory")
	}
	defer os.RemoveAll(tempDir)

	tempPaths := make([]string, numShards)
	for i := range tempPaths {
		tempPaths[i] = filepath.Join(tempDir, fmt.Sprintf("%06d", i))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for shardIdx := 0; shardIdx < numShards; shardIdx++ {
		shardIdx := shardIdx
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return joinOneShard(gctx, opts.Frames, shardIdx, layout, tempPaths[shardIdx], opts.Format, opts.FmtParams)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return Concatenate(ctx, tempPaths, dest)
}

// joinOneShard independently opens shard i of every frame, runs the
// merge-join kernel, projects through layout, and writes the result
// to a private temp file using the requested output format.
func joinOneShard(ctx context.Context, frames []*frame.Frame, shardIdx int, layout Layout, tempPath string, format record.Format, fmtparams map[string]string) error {
	readers := make([]record.Reader, len(frames))
	closers := make([]interface{ Close() error }, 0, len(frames))
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	for i, f := range frames {
		shard, err := f.Shard(ctx, shardIdx, nil)
		if err != nil {
			return err
		}
		r, closer, err := shard.Records()
		if err != nil {
			return err
		}
		closers = append(closers, closer)
		readers[i] = r
	}

	merged, err := NewMergeReader(readers[0], readers[1:])
	if err != nil {
		return err
	}

	out, err := os.Create(tempPath)
	if err != nil {
		return errors.Wrapf(err, "join: create temp output for shard %d", shardIdx)
	}
	defer out.Close()

	writer, err := record.NewWriter(out, format, shardIdx, layout.Indices, layout.FieldNames, fmtparams)
	if err != nil {
		return err
	}

	for {
		row, err := merged.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "join: merge shard %d", shardIdx)
		}
		if err := writer.WriteRecord(row); err != nil {
			return errors.Wrapf(err, "join: write shard %d", shardIdx)
		}
	}

	if err := writer.Flush(); err != nil {
		return err
	}
	return out.Close()
}
