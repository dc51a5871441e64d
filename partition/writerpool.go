package partition

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pkg/errors"
	"v.io/x/lib/vlog"

	"github.com/grailbio/datawelder/blob"
	"github.com/grailbio/datawelder/record"
)

// ShardFilename is the printf-style shard filename template recorded
// in the manifest's partition_format field.
const ShardFilename = "%04d.bin"

// writerPool holds numShards simultaneously open shard sinks, each
// wrapped in a binary frame encoder. It opens all sinks up front,
// guarantees they are closed on every exit path, and raises the FD
// soft limit for the duration.
type writerPool struct {
	sinks   []*record.FrameWriter
	closers []io.WriteCloser
	restore func() error
}

// openWriterPool opens one sink per shard under dir, named by
// ShardFilename, and raises the process FD soft limit to accommodate
// them all.
func openWriterPool(ctx context.Context, dir string, numShards int) (*writerPool, error) {
	restore, err := raiseFDLimit(numShards)
	if err != nil {
		return nil, err
	}
	pool := &writerPool{restore: restore}
	for i := 0; i < numShards; i++ {
		path := filepath.Join(dir, fmt.Sprintf(ShardFilename, i))
		wc, err := blob.Create(ctx, path)
		if err != nil {
			pool.abortAll()
			return nil, errors.Wrapf(err, "partition: open shard sink %d", i)
		}
		pool.closers = append(pool.closers, wc)
		pool.sinks = append(pool.sinks, record.NewFrameWriter(wc))
	}
	return pool, nil
}

// Shard returns the frame encoder for shard i.
func (p *writerPool) Shard(i int) *record.FrameWriter {
	return p.sinks[i]
}

// closeAll flushes and closes every sink opened so far, continuing
// past individual errors so that no descriptor leaks, and returns the
// first error encountered (if any).
func (p *writerPool) closeAll() error {
	var first error
	for i, fw := range p.sinks {
		if err := fw.Flush(); err != nil && first == nil {
			first = errors.Wrapf(err, "partition: flush shard %d", i)
		}
	}
	for i, c := range p.closers {
		if err := c.Close(); err != nil {
			vlog.Errorf("partition: close shard %d: %v", i, err)
			if first == nil {
				first = errors.Wrapf(err, "partition: close shard %d", i)
			}
		}
	}
	if p.restore != nil {
		if err := p.restore(); err != nil {
			vlog.Errorf("partition: restore fd limit: %v", err)
		}
	}
	return first
}

// Close flushes and closes all sinks and restores the FD limit. It is
// safe to call exactly once, on the success exit path.
func (p *writerPool) Close() error {
	return p.closeAll()
}

// abortAll terminates every sink opened so far instead of completing
// it, skipping the flush since nothing buffered is worth keeping. Used
// on the failure path so a shard sink backed by an S3 multipart
// upload is aborted rather than completed with truncated data.
func (p *writerPool) abortAll() {
	for i, c := range p.closers {
		if err := blob.Abort(c); err != nil {
			vlog.Errorf("partition: abort shard %d: %v", i, err)
		}
	}
	if p.restore != nil {
		if err := p.restore(); err != nil {
			vlog.Errorf("partition: restore fd limit: %v", err)
		}
	}
}

// Abort terminates all sinks on the failure path. See abortAll.
func (p *writerPool) Abort() {
	p.abortAll()
}
