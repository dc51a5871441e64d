package record

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/grailbio/datawelder/dwerr"
)

// Shard files are a stream of length-prefixed records: a big-endian
// uint32 byte length, followed by that many bytes of a self-describing
// field encoding. EOF at a length boundary is the sole termination
// signal; anything else is a framing error.
//
// The per-field encoding is a one-byte type tag followed by a
// type-specific payload, which keeps the format simple to stream
// without reflection while covering every scalar type record.Record
// can hold: string, integer, float, bool, null.

const (
	tagNull = iota
	tagString
	tagInt64
	tagFloat64
	tagBool
)

// FrameWriter appends records to a shard file in the self-delimited
// binary format.
type FrameWriter struct {
	w   *bufio.Writer
	buf []byte
}

// NewFrameWriter wraps w for writing framed records.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: bufio.NewWriter(w)}
}

// WriteRecord appends one record.
func (fw *FrameWriter) WriteRecord(r Record) error {
	fw.buf = fw.buf[:0]
	fw.buf = appendUvarint(fw.buf, uint64(len(r)))
	for _, field := range r {
		var err error
		fw.buf, err = appendField(fw.buf, field)
		if err != nil {
			return errors.Wrap(err, "record: encode field")
		}
	}

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(fw.buf)))
	if _, err := fw.w.Write(lenPrefix[:]); err != nil {
		return errors.Wrap(err, "record: write length prefix")
	}
	if _, err := fw.w.Write(fw.buf); err != nil {
		return errors.Wrap(err, "record: write record body")
	}
	return nil
}

// Flush flushes any buffered output. Callers (typically the
// multi-writer pool) must call Flush before closing the underlying
// sink.
func (fw *FrameWriter) Flush() error {
	return fw.w.Flush()
}

// FrameReader reads records back out of the self-delimited binary
// format written by FrameWriter.
type FrameReader struct {
	r   *bufio.Reader
	buf []byte
}

// NewFrameReader wraps r for reading framed records.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// ReadRecord returns the next record, or io.EOF once the stream is
// exhausted cleanly. Any other error, including a truncated length
// prefix or body, is wrapped in dwerr.ErrFraming.
func (fr *FrameReader) ReadRecord() (Record, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(fr.r, lenPrefix[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrapf(dwerr.ErrFraming, "truncated length prefix: %v", err)
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	if cap(fr.buf) < int(n) {
		fr.buf = make([]byte, n)
	}
	body := fr.buf[:n]
	if _, err := io.ReadFull(fr.r, body); err != nil {
		return nil, errors.Wrapf(dwerr.ErrFraming, "truncated record body: %v", err)
	}
	rec, err := decodeRecord(body)
	if err != nil {
		return nil, errors.Wrapf(dwerr.ErrFraming, "%v", err)
	}
	return rec, nil
}

func appendField(buf []byte, v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return append(buf, tagNull), nil
	case string:
		buf = append(buf, tagString)
		buf = appendUvarint(buf, uint64(len(x)))
		return append(buf, x...), nil
	case int:
		buf = append(buf, tagInt64)
		return appendUint64(buf, uint64(int64(x))), nil
	case int64:
		buf = append(buf, tagInt64)
		return appendUint64(buf, uint64(x)), nil
	case float64:
		buf = append(buf, tagFloat64)
		return appendUint64(buf, math.Float64bits(x)), nil
	case bool:
		buf = append(buf, tagBool)
		if x {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	default:
		return nil, errors.Errorf("unsupported field type %T", v)
	}
}

func decodeRecord(body []byte) (Record, error) {
	n, body, err := readUvarint(body)
	if err != nil {
		return nil, err
	}
	rec := make(Record, n)
	for i := range rec {
		var v any
		v, body, err = readField(body)
		if err != nil {
			return nil, err
		}
		rec[i] = v
	}
	return rec, nil
}

func readField(body []byte) (any, []byte, error) {
	if len(body) < 1 {
		return nil, nil, errors.New("empty field")
	}
	tag, body := body[0], body[1:]
	switch tag {
	case tagNull:
		return nil, body, nil
	case tagString:
		n, rest, err := readUvarint(body)
		if err != nil {
			return nil, nil, err
		}
		if uint64(len(rest)) < n {
			return nil, nil, errors.New("truncated string field")
		}
		return string(rest[:n]), rest[n:], nil
	case tagInt64:
		if len(body) < 8 {
			return nil, nil, errors.New("truncated int64 field")
		}
		return int64(binary.BigEndian.Uint64(body[:8])), body[8:], nil
	case tagFloat64:
		if len(body) < 8 {
			return nil, nil, errors.New("truncated float64 field")
		}
		return math.Float64frombits(binary.BigEndian.Uint64(body[:8])), body[8:], nil
	case tagBool:
		if len(body) < 1 {
			return nil, nil, errors.New("truncated bool field")
		}
		return body[0] != 0, body[1:], nil
	default:
		return nil, nil, errors.Errorf("unknown field tag %d", tag)
	}
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func readUvarint(buf []byte) (uint64, []byte, error) {
	v, n := binary.Uvarint(buf)
	if n <= 0 {
		return 0, nil, errors.New("malformed varint")
	}
	return v, buf[n:], nil
}
