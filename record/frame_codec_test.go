package record

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/datawelder/dwerr"
)

func TestFrameRoundTrip(t *testing.T) {
	records := []Record{
		{"AU", "Australia", int64(1), 3.5, true},
		{"RU", "Russia", int64(2), nil, false},
		{nil, "no key", int64(0), 0.0, false},
	}

	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	for _, r := range records {
		require.NoError(t, fw.WriteRecord(r))
	}
	require.NoError(t, fw.Flush())

	fr := NewFrameReader(&buf)
	var got []Record
	for {
		rec, err := fr.ReadRecord()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, rec)
	}
	assert.Equal(t, records, got)
}

func TestFrameReaderEmptyStreamIsEOF(t *testing.T) {
	fr := NewFrameReader(bytes.NewReader(nil))
	_, err := fr.ReadRecord()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameReaderTruncatedIsFramingError(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	require.NoError(t, fw.WriteRecord(Record{"a", int64(1)}))
	require.NoError(t, fw.Flush())

	truncated := buf.Bytes()[:buf.Len()-1]
	fr := NewFrameReader(bytes.NewReader(truncated))
	_, err := fr.ReadRecord()
	assert.ErrorIs(t, err, dwerr.ErrFraming)
}
