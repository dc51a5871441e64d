package frame

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/datawelder/blob"
	"github.com/grailbio/datawelder/record"
)

func writeShard(t *testing.T, path string, recs []record.Record) {
	t.Helper()
	wc, err := blob.Create(context.Background(), path)
	require.NoError(t, err)
	fw := record.NewFrameWriter(wc)
	for _, r := range recs {
		require.NoError(t, fw.WriteRecord(r))
	}
	require.NoError(t, fw.Flush())
	require.NoError(t, wc.Close())
}

func TestFrameShardProjectionAutoInsertsKey(t *testing.T) {
	dir := t.TempDir()
	m := Manifest{
		ConfigFormat:    CurrentConfigFormat,
		FieldNames:      []string{"iso", "name", "population"},
		KeyIndex:        0,
		NumPartitions:   1,
		PartitionFormat: "%04d.bin",
	}
	require.NoError(t, WriteManifest(dir, m))
	writeShard(t, m.ShardPath(dir, 0), []record.Record{{"AU", "Australia", int64(26)}})

	f, err := Open(dir)
	require.NoError(t, err)

	shard, err := f.Shard(context.Background(), 0, []string{"name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"iso", "name"}, shard.Schema().FieldNames)
	assert.Equal(t, 0, shard.Schema().KeyIndex)

	reader, closer, err := shard.Records()
	require.NoError(t, err)
	defer closer.Close()

	rec, err := reader.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, record.Record{"AU", "Australia"}, rec)

	_, err = reader.ReadRecord()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameShardIndexOutOfRange(t *testing.T) {
	dir := t.TempDir()
	m := Manifest{
		ConfigFormat:    CurrentConfigFormat,
		FieldNames:      []string{"a"},
		NumPartitions:   2,
		PartitionFormat: "%04d.bin",
	}
	require.NoError(t, WriteManifest(dir, m))
	writeShard(t, m.ShardPath(dir, 0), nil)
	writeShard(t, m.ShardPath(dir, 1), nil)

	f, err := Open(dir)
	require.NoError(t, err)

	_, err = f.Shard(context.Background(), 2, nil)
	assert.Error(t, err)
}

func TestFrameShardRestartable(t *testing.T) {
	dir := t.TempDir()
	m := Manifest{
		ConfigFormat:    CurrentConfigFormat,
		FieldNames:      []string{"a"},
		NumPartitions:   1,
		PartitionFormat: "%04d.bin",
	}
	require.NoError(t, WriteManifest(dir, m))
	writeShard(t, m.ShardPath(dir, 0), []record.Record{{int64(1)}, {int64(2)}})

	f, err := Open(dir)
	require.NoError(t, err)
	shard, err := f.Shard(context.Background(), 0, nil)
	require.NoError(t, err)

	for pass := 0; pass < 2; pass++ {
		reader, closer, err := shard.Records()
		require.NoError(t, err)
		var got []record.Record
		for {
			rec, err := reader.ReadRecord()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			got = append(got, rec)
		}
		require.NoError(t, closer.Close())
		assert.Equal(t, []record.Record{{int64(1)}, {int64(2)}}, got)
	}
}
