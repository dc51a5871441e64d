package partition

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/datawelder/frame"
	"github.com/grailbio/datawelder/record"
)

type sliceReader struct {
	schema record.Schema
	recs   []record.Record
	pos    int
}

func (s *sliceReader) Schema() record.Schema { return s.schema }

func (s *sliceReader) ReadRecord() (record.Record, error) {
	if s.pos >= len(s.recs) {
		return nil, io.EOF
	}
	rec := s.recs[s.pos]
	s.pos++
	return rec, nil
}

func TestPartitionCompletenessAndSortedness(t *testing.T) {
	dir := t.TempDir()
	schema := record.Schema{FieldNames: []string{"iso", "name"}, KeyIndex: 0}
	input := []record.Record{
		{"RU", "Russia"},
		{"AU", "Australia"},
		{"JP", "Japan"},
		{"KP", "Kraplakistan"},
		{nil, "should be skipped"},
	}
	reader := &sliceReader{schema: schema, recs: input}

	ctx := context.Background()
	err := Partition(ctx, reader, dir, Options{NumShards: 4, Workers: 1})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, frame.ManifestName))
	require.NoError(t, err)

	f, err := frame.Open(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, f.NumShards())

	var all []record.Record
	for i := 0; i < f.NumShards(); i++ {
		shard, err := f.Shard(ctx, i, nil)
		require.NoError(t, err)
		reader, closer, err := shard.Records()
		require.NoError(t, err)

		var prevKey string
		hasPrev := false
		for {
			rec, err := reader.ReadRecord()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			key := rec[shard.Schema().KeyIndex].(string)
			if hasPrev {
				assert.LessOrEqual(t, prevKey, key, "shard %d not sorted", i)
			}
			prevKey = key
			hasPrev = true
			all = append(all, rec)
		}
		require.NoError(t, closer.Close())
	}

	// Partition completeness: every non-null-key input record appears
	// exactly once across all shards; the null-key record is dropped.
	assert.Len(t, all, 4)
	seen := map[string]int{}
	for _, rec := range all {
		seen[rec[0].(string)]++
	}
	for _, rec := range input[:4] {
		assert.Equal(t, 1, seen[rec[0].(string)])
	}
}

// lazySchemaReader mimics record.JSONReader: Schema() returns an empty
// schema until the first record has actually been read, the way field
// names sniffed from the data only become known at that point.
type lazySchemaReader struct {
	schema record.Schema
	recs   []record.Record
	pos    int
	read   bool
}

func (s *lazySchemaReader) Schema() record.Schema {
	if !s.read {
		return record.Schema{}
	}
	return s.schema
}

func (s *lazySchemaReader) ReadRecord() (record.Record, error) {
	if s.pos >= len(s.recs) {
		return nil, io.EOF
	}
	rec := s.recs[s.pos]
	s.pos++
	s.read = true
	return rec, nil
}

func TestPartitionResolvesLazilySniffedSchema(t *testing.T) {
	dir := t.TempDir()
	schema := record.Schema{FieldNames: []string{"iso", "name"}, KeyIndex: 0}
	input := []record.Record{{"AU", "Australia"}, {"RU", "Russia"}}
	reader := &lazySchemaReader{schema: schema, recs: input}

	err := Partition(context.Background(), reader, dir, Options{NumShards: 2, Workers: 1})
	require.NoError(t, err)

	f, err := frame.Open(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"iso", "name"}, f.Schema().FieldNames)
	assert.Equal(t, 0, f.Schema().KeyIndex)
}

func TestPartitionEmptyInputProducesEmptyShards(t *testing.T) {
	dir := t.TempDir()
	schema := record.Schema{FieldNames: []string{"a"}, KeyIndex: 0}
	reader := &sliceReader{schema: schema}

	err := Partition(context.Background(), reader, dir, Options{NumShards: 3, Workers: 1})
	require.NoError(t, err)

	f, err := frame.Open(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, f.NumShards())

	for i := 0; i < 3; i++ {
		shard, err := f.Shard(context.Background(), i, nil)
		require.NoError(t, err)
		reader, closer, err := shard.Records()
		require.NoError(t, err)
		_, err = reader.ReadRecord()
		assert.ErrorIs(t, err, io.EOF)
		require.NoError(t, closer.Close())
	}
}

func TestPartitionIsHashStable(t *testing.T) {
	schema := record.Schema{FieldNames: []string{"iso", "name"}, KeyIndex: 0}
	input := []record.Record{{"AU", "Australia"}, {"RU", "Russia"}, {"JP", "Japan"}}

	locate := func(dir string) map[string]int {
		loc := map[string]int{}
		f, err := frame.Open(dir)
		require.NoError(t, err)
		for i := 0; i < f.NumShards(); i++ {
			shard, err := f.Shard(context.Background(), i, nil)
			require.NoError(t, err)
			reader, closer, err := shard.Records()
			require.NoError(t, err)
			for {
				rec, err := reader.ReadRecord()
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
				loc[rec[0].(string)] = i
			}
			require.NoError(t, closer.Close())
		}
		return loc
	}

	dir1, dir2 := t.TempDir(), t.TempDir()
	require.NoError(t, Partition(context.Background(), &sliceReader{schema: schema, recs: input}, dir1, Options{NumShards: 5, Workers: 1}))
	require.NoError(t, Partition(context.Background(), &sliceReader{schema: schema, recs: input}, dir2, Options{NumShards: 5, Workers: 1}))

	assert.Equal(t, locate(dir1), locate(dir2))
}
