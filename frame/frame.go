package frame

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/grailbio/datawelder/blob"
	"github.com/grailbio/datawelder/record"
)

// Frame is an opened partitioned frame: a manifest plus the directory
// it lives in, exposing its shard count and lazily-iterated shards.
type Frame struct {
	dir string
	m   Manifest
}

// Open loads and validates dir's manifest, returning a Frame ready for
// shard access.
func Open(dir string) (*Frame, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	return &Frame{dir: dir, m: m}, nil
}

// Dir returns the directory this frame was opened from.
func (f *Frame) Dir() string { return f.dir }

// NumShards returns the frame's shard count N.
func (f *Frame) NumShards() int { return f.m.NumPartitions }

// Schema returns the frame's field names and key index.
func (f *Frame) Schema() record.Schema {
	return record.Schema{FieldNames: f.m.FieldNames, KeyIndex: f.m.KeyIndex}
}

// Manifest returns the frame's parsed manifest.
func (f *Frame) Manifest() Manifest { return f.m }

// Shard opens shard i for reading, optionally narrowed to the columns
// named in project (the join key is auto-inserted if project omits
// it). A nil project selects every column.
func (f *Frame) Shard(ctx context.Context, i int, project []string) (*Shard, error) {
	if i < 0 || i >= f.m.NumPartitions {
		return nil, errors.Errorf("frame: shard index %d out of range [0, %d)", i, f.m.NumPartitions)
	}
	schema := f.Schema()
	indices, projected, err := projectSchema(schema, project)
	if err != nil {
		return nil, err
	}
	return &Shard{
		ctx:     ctx,
		path:    f.m.ShardPath(f.dir, i),
		indices: indices,
		schema:  projected,
	}, nil
}

// projectSchema resolves a list of column names (nil means "all") to
// source-record indices, auto-inserting the join key if it was
// omitted, and returns the schema of the projected rows.
func projectSchema(schema record.Schema, project []string) ([]int, record.Schema, error) {
	if project == nil {
		indices := make([]int, len(schema.FieldNames))
		for i := range indices {
			indices[i] = i
		}
		return indices, schema, nil
	}

	byName := make(map[string]int, len(schema.FieldNames))
	for i, name := range schema.FieldNames {
		byName[name] = i
	}

	indices := make([]int, 0, len(project)+1)
	haveKey := false
	for _, name := range project {
		idx, ok := byName[name]
		if !ok {
			return nil, record.Schema{}, errors.Errorf("frame: unknown projected field %q", name)
		}
		indices = append(indices, idx)
		if idx == schema.KeyIndex {
			haveKey = true
		}
	}
	if !haveKey {
		indices = append([]int{schema.KeyIndex}, indices...)
	}
	return indices, schema.Project(indices), nil
}

// Shard is a restartable, column-projected iterator over one shard's
// records. Each call to Records opens a fresh
// underlying stream; the records themselves are a read-time
// transformation and never mutate the stored shard file.
type Shard struct {
	ctx     context.Context
	path    string
	indices []int
	schema  record.Schema
}

// Schema returns the projected field names and key index.
func (s *Shard) Schema() record.Schema { return s.schema }

// Records opens a new forward-only iterator over this shard's
// records, projected per Schema. The returned closer must be Closed
// by the caller when done.
func (s *Shard) Records() (record.Reader, io.Closer, error) {
	rc, err := blob.Open(s.ctx, s.path)
	if err != nil {
		return nil, nil, err
	}
	return &shardReader{
		fr:      record.NewFrameReader(rc),
		indices: s.indices,
		schema:  s.schema,
	}, rc, nil
}

type shardReader struct {
	fr      *record.FrameReader
	indices []int
	schema  record.Schema
}

func (r *shardReader) Schema() record.Schema { return r.schema }

func (r *shardReader) ReadRecord() (record.Record, error) {
	rec, err := r.fr.ReadRecord()
	if err != nil {
		return nil, err
	}
	if len(r.indices) == len(rec) && isIdentityProjection(r.indices) {
		return rec, nil
	}
	out := make(record.Record, len(r.indices))
	for i, idx := range r.indices {
		out[i] = rec[idx]
	}
	return out, nil
}

func isIdentityProjection(indices []int) bool {
	for i, idx := range indices {
		if i != idx {
			return false
		}
	}
	return true
}
