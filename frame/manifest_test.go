package frame

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/datawelder/dwerr"
)

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := Manifest{
		ConfigFormat:    CurrentConfigFormat,
		FieldNames:      []string{"iso", "name"},
		KeyIndex:        0,
		NumPartitions:   4,
		PartitionFormat: "%04d.bin",
		SourcePath:      "countries.csv",
	}
	require.NoError(t, WriteManifest(dir, m))

	got, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestManifestShardPath(t *testing.T) {
	m := Manifest{PartitionFormat: "%04d.bin"}
	assert.Equal(t, filepath.Join("/data/foo", "0007.bin"), m.ShardPath("/data/foo", 7))
}

func TestReadManifestRejectsUnknownConfigFormat(t *testing.T) {
	dir := t.TempDir()
	m := Manifest{
		ConfigFormat:    2,
		FieldNames:      []string{"a"},
		NumPartitions:   1,
		PartitionFormat: "%04d.bin",
	}
	require.NoError(t, WriteManifest(dir, m))

	_, err := ReadManifest(dir)
	assert.ErrorIs(t, err, dwerr.ErrInvalidManifest)
}

func TestReadManifestRejectsMissingFields(t *testing.T) {
	dir := t.TempDir()
	m := Manifest{ConfigFormat: CurrentConfigFormat, NumPartitions: 1, PartitionFormat: "%04d.bin"}
	require.NoError(t, WriteManifest(dir, m))

	_, err := ReadManifest(dir)
	assert.ErrorIs(t, err, dwerr.ErrInvalidManifest)
}
