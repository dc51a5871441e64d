package record

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Format names the on-the-wire record encoding. Binary is this
// module's own length-prefixed framing; see record/frame_codec.go.
type Format string

const (
	CSV    Format = "csv"
	JSON   Format = "json"
	Binary Format = "binary"
)

// SniffFormat guesses a Format from a path's extension.
func SniffFormat(path string) (Format, error) {
	switch {
	case strings.Contains(path, ".csv"):
		return CSV, nil
	case strings.Contains(path, ".json"):
		return JSON, nil
	case strings.Contains(path, ".bin"):
		return Binary, nil
	default:
		return "", errors.Errorf("record: cannot sniff format of %q", path)
	}
}

// Reader is a forward-only, finite iterator over records with a known
// schema.
type Reader interface {
	// ReadRecord returns the next record, or io.EOF once exhausted.
	ReadRecord() (Record, error)
	// Schema describes the records this Reader yields.
	Schema() Schema
}

// Writer accepts records one at a time and must be Flushed (and, by
// the caller, have its underlying sink closed) when done.
type Writer interface {
	WriteRecord(Record) error
	Flush() error
}

// ParseFmtParams parses "key=value" pairs into a map.
func ParseFmtParams(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, errors.Errorf("record: malformed fmtparam %q, expected key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

// csvDelimiter extracts the "delimiter" fmtparam, defaulting to comma.
func csvDelimiter(fmtparams map[string]string) (rune, error) {
	v, ok := fmtparams["delimiter"]
	if !ok || v == "" {
		return ',', nil
	}
	r := []rune(v)
	if len(r) != 1 {
		return 0, errors.Errorf("record: delimiter fmtparam must be a single character, got %q", v)
	}
	return r[0], nil
}

func writeHeaderParam(fmtparams map[string]string) (bool, error) {
	v, ok := fmtparams["write_header"]
	if !ok || v == "" {
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "record: write_header fmtparam")
	}
	return b, nil
}

// OpenReader wraps stream in a Reader for the given format, resolving the
// join key either by index (key is an int) or by name (key is a
// string).
func OpenReader(stream io.Reader, format Format, key any, fieldNames []string, fmtparams map[string]string) (Reader, error) {
	switch format {
	case CSV:
		delim, err := csvDelimiter(fmtparams)
		if err != nil {
			return nil, err
		}
		cr, err := NewCSVReader(stream, fieldNames, delim)
		if err != nil {
			return nil, err
		}
		if err := resolveKey(key, cr.FieldNames, &cr.KeyIndex, cr.ResolveKeyName); err != nil {
			return nil, err
		}
		return &csvReaderAdapter{cr}, nil
	case JSON:
		jr := NewJSONReader(stream, fieldNames)
		if len(fieldNames) > 0 {
			if err := resolveKey(key, jr.FieldNames, &jr.KeyIndex, jr.ResolveKeyName); err != nil {
				return nil, err
			}
		} else if idx, ok := key.(int); ok {
			jr.KeyIndex = idx
		}
		return &jsonReaderAdapter{jr, key}, nil
	default:
		return nil, errors.Errorf("record: unsupported reader format %q", format)
	}
}

func resolveKey(key any, fieldNames []string, keyIndex *int, resolveName func(string) error) error {
	switch k := key.(type) {
	case int:
		*keyIndex = k
		return nil
	case string:
		return resolveName(k)
	default:
		return errors.Errorf("record: key must be an int or string, got %T", key)
	}
}

type csvReaderAdapter struct{ r *CSVReader }

func (a *csvReaderAdapter) ReadRecord() (Record, error) { return a.r.ReadRecord() }
func (a *csvReaderAdapter) Schema() Schema {
	return Schema{FieldNames: a.r.FieldNames, KeyIndex: a.r.KeyIndex}
}

type jsonReaderAdapter struct {
	r        *JSONReader
	key      any
	resolved bool
}

func (a *jsonReaderAdapter) ReadRecord() (Record, error) {
	rec, err := a.r.ReadRecord()
	if err == nil && !a.resolved {
		if name, ok := a.key.(string); ok {
			if resolveErr := a.r.ResolveKeyName(name); resolveErr != nil {
				return nil, resolveErr
			}
		}
		a.resolved = true
	}
	return rec, err
}
func (a *jsonReaderAdapter) Schema() Schema {
	return Schema{FieldNames: a.r.FieldNames, KeyIndex: a.r.KeyIndex}
}

// NewWriter opens a Writer for the given format, projecting fields
// through fieldIndices and labeling them with fieldNames.
// partitionNum is used only by CSV to decide whether to emit a header
// (only shard 0 does, so a later concatenation has exactly one).
func NewWriter(stream io.Writer, format Format, partitionNum int, fieldIndices []int, fieldNames []string, fmtparams map[string]string) (Writer, error) {
	switch format {
	case CSV:
		delim, err := csvDelimiter(fmtparams)
		if err != nil {
			return nil, err
		}
		writeHeader, err := writeHeaderParam(fmtparams)
		if err != nil {
			return nil, err
		}
		return NewCSVWriter(stream, fieldIndices, fieldNames, writeHeader && partitionNum == 0, delim)
	case JSON:
		return NewJSONWriter(stream, fieldIndices, fieldNames)
	case Binary:
		return &binaryWriterAdapter{NewFrameWriter(stream), fieldIndices}, nil
	default:
		return nil, errors.Errorf("record: unsupported writer format %q", format)
	}
}

type binaryWriterAdapter struct {
	fw      *FrameWriter
	indices []int
}

func (a *binaryWriterAdapter) WriteRecord(r Record) error {
	projected := make(Record, len(a.indices))
	for i, idx := range a.indices {
		projected[i] = r[idx]
	}
	return a.fw.WriteRecord(projected)
}

func (a *binaryWriterAdapter) Flush() error { return a.fw.Flush() }
