package join

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/datawelder/frame"
	"github.com/grailbio/datawelder/partition"
	"github.com/grailbio/datawelder/record"
)

func partitionInto(t *testing.T, dir string, fieldNames []string, keyIndex, numShards int, recs []record.Record) *frame.Frame {
	t.Helper()
	reader := &sliceReaderForJoin{schema: record.Schema{FieldNames: fieldNames, KeyIndex: keyIndex}, recs: recs}
	require.NoError(t, partition.Partition(context.Background(), reader, dir, partition.Options{NumShards: numShards, Workers: 1}))
	f, err := frame.Open(dir)
	require.NoError(t, err)
	return f
}

type sliceReaderForJoin struct {
	schema record.Schema
	recs   []record.Record
	pos    int
}

func (s *sliceReaderForJoin) Schema() record.Schema { return s.schema }
func (s *sliceReaderForJoin) ReadRecord() (record.Record, error) {
	if s.pos >= len(s.recs) {
		return nil, io.EOF
	}
	rec := s.recs[s.pos]
	s.pos++
	return rec, nil
}

func TestRunEndToEndTwoWayJoin(t *testing.T) {
	base := t.TempDir()
	left := partitionInto(t, filepath.Join(base, "left"), []string{"iso", "name"}, 0, 2,
		[]record.Record{{"AU", "Australia"}, {"RU", "Russia"}, {"JP", "Japan"}})
	right := partitionInto(t, filepath.Join(base, "right"), []string{"iso", "currency"}, 0, 2,
		[]record.Record{{"AU", "Dollar"}, {"RU", "Rouble"}, {"JP", "Yen"}})

	dest := filepath.Join(base, "joined.csv")
	err := Run(context.Background(), dest, Options{
		Frames:  []*frame.Frame{left, right},
		Format:  record.CSV,
		Workers: 1,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "iso,name,currency\n")
	assert.Contains(t, string(data), "AU,Australia,Dollar\n")
	assert.Contains(t, string(data), "RU,Russia,Rouble\n")
	assert.Contains(t, string(data), "JP,Japan,Yen\n")
}
