package partition

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/grailbio/datawelder/blob"
	"github.com/grailbio/datawelder/record"
)

// sortShards loads each of the numShards shard files in dir entirely
// into memory, sorts it by the key field with a stable comparator,
// and rewrites it via a temp-file-then-rename so that readers never
// observe a partially sorted shard. Shards are processed concurrently
// across up to workers goroutines using golang.org/x/sync/errgroup for
// first-error cancellation.
func sortShards(ctx context.Context, dir string, numShards, keyIndex, workers int) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > numShards {
		workers = numShards
	}
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < numShards; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return sortOneShard(gctx, dir, i, keyIndex)
		})
	}
	return g.Wait()
}

func sortOneShard(ctx context.Context, dir string, shardIndex, keyIndex int) error {
	path := filepath.Join(dir, fmt.Sprintf(ShardFilename, shardIndex))
	records, err := readAllRecords(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "partition: load shard %d for sorting", shardIndex)
	}

	if err := sortRecordsByKey(records, keyIndex); err != nil {
		return errors.Wrapf(err, "partition: sort shard %d", shardIndex)
	}

	tmpPath := path + ".sorting"
	if err := writeAllRecords(ctx, tmpPath, records); err != nil {
		return errors.Wrapf(err, "partition: write sorted shard %d", shardIndex)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrapf(err, "partition: rename sorted shard %d into place", shardIndex)
	}
	return nil
}

func readAllRecords(ctx context.Context, path string) ([]record.Record, error) {
	rc, err := blob.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	fr := record.NewFrameReader(rc)
	var out []record.Record
	for {
		rec, err := fr.ReadRecord()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

func writeAllRecords(ctx context.Context, path string, records []record.Record) error {
	wc, err := blob.Create(ctx, path)
	if err != nil {
		return err
	}
	fw := record.NewFrameWriter(wc)
	for _, rec := range records {
		if err := fw.WriteRecord(rec); err != nil {
			wc.Close()
			return err
		}
	}
	if err := fw.Flush(); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

// sortRecordsByKey stable-sorts records by the field at keyIndex using
// record.CompareKeys. Mixing key types within one shard is unsupported
// and surfaces as an error rather than a panic or silently wrong order.
func sortRecordsByKey(records []record.Record, keyIndex int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("incomparable or mixed key types: %v", r)
		}
	}()
	sort.SliceStable(records, func(i, j int) bool {
		cmp, cmpErr := record.CompareKeys(records[i][keyIndex], records[j][keyIndex])
		if cmpErr != nil {
			panic(cmpErr)
		}
		return cmp < 0
	})
	return nil
}
