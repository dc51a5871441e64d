package partition

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"v.io/x/lib/vlog"

	"github.com/grailbio/datawelder/frame"
	"github.com/grailbio/datawelder/record"
	"github.com/grailbio/datawelder/shardkey"
)

// progressInterval is the default number of records between progress
// callbacks.
const progressInterval = 1_000_000

// Options configures a Partition run.
type Options struct {
	// NumShards is the number of output shards to create.
	NumShards int
	// Hash computes the destination shard for a key. Defaults to
	// shardkey.Default.
	Hash shardkey.Func
	// Progress, if non-nil, is invoked every ProgressEvery records
	// (default progressInterval) with the cumulative count consumed
	// so far, including skipped records.
	Progress func(consumed int64)
	// ProgressEvery overrides the default progress callback interval.
	ProgressEvery int64
	// SourcePath is recorded in the manifest for informational purposes.
	SourcePath string
	// Workers bounds how many shards are sorted concurrently after
	// partitioning (default: runtime.NumCPU()). Set to 1 to sort
	// sequentially.
	Workers int
}

// Partition consumes reader and routes each record to one of
// opts.NumShards shard files under destDir, then sorts each shard by
// its key field and writes the frame's manifest last so readers never
// observe a partial frame. Records with a nil key are skipped and
// logged rather than written to any shard.
func Partition(ctx context.Context, reader record.Reader, destDir string, opts Options) error {
	if opts.NumShards <= 0 {
		return errors.New("partition: NumShards must be positive")
	}
	hash := opts.Hash
	if hash == nil {
		hash = shardkey.Default
	}
	progressEvery := opts.ProgressEvery
	if progressEvery <= 0 {
		progressEvery = progressInterval
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errors.Wrap(err, "partition: create destination directory")
	}

	pool, err := openWriterPool(ctx, destDir, opts.NumShards)
	if err != nil {
		return err
	}

	var schema record.Schema
	var consumed, skipped int64
	for {
		rec, readErr := reader.ReadRecord()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			pool.Abort()
			return errors.Wrap(readErr, "partition: read input record")
		}
		// Some readers (record.JSONReader with no --fieldnames) sniff
		// their schema lazily from the first record, so Schema() is
		// only trustworthy once a record has actually been read.
		schema = reader.Schema()

		key := schema.Key(rec)
		if key == nil {
			skipped++
			consumed++
			if opts.Progress != nil && consumed%progressEvery == 0 {
				opts.Progress(consumed)
			}
			continue
		}

		shard := hash(key, opts.NumShards)
		if shard < 0 || shard >= opts.NumShards {
			pool.Abort()
			return errors.Errorf("partition: hash function returned out-of-range shard %d for %d shards", shard, opts.NumShards)
		}
		if werr := pool.Shard(shard).WriteRecord(rec); werr != nil {
			pool.Abort()
			return errors.Wrapf(werr, "partition: write to shard %d", shard)
		}

		consumed++
		if opts.Progress != nil && consumed%progressEvery == 0 {
			opts.Progress(consumed)
		}
	}

	if err := pool.Close(); err != nil {
		return err
	}
	if schema.FieldNames == nil {
		// No record was ever read (empty input): fall back to whatever
		// the reader reports up front, which is correct for readers
		// whose schema doesn't depend on sniffing the data.
		schema = reader.Schema()
	}
	if skipped > 0 {
		vlog.Infof("partition: skipped %d record(s) with missing or null key out of %d", skipped, consumed)
	}

	workers := opts.Workers
	if err := sortShards(ctx, destDir, opts.NumShards, schema.KeyIndex, workers); err != nil {
		return err
	}

	return frame.WriteManifest(destDir, frame.Manifest{
		ConfigFormat:    frame.CurrentConfigFormat,
		FieldNames:      schema.FieldNames,
		KeyIndex:        schema.KeyIndex,
		NumPartitions:   opts.NumShards,
		PartitionFormat: ShardFilename,
		SourcePath:      opts.SourcePath,
	})
}
