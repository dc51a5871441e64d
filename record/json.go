package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// JSONReader reads line-delimited JSON objects. Field names default
// to the sorted keys of the first record when not supplied, and
// absent keys decode as null.
type JSONReader struct {
	scanner    *bufio.Scanner
	FieldNames []string
	KeyIndex   int
	sniffed    bool
}

// NewJSONReader opens a JSON-lines reader. If fieldNames is empty, it
// is sniffed from the first line's keys (sorted, matching the Python
// reference's `sorted(record_dict)`).
func NewJSONReader(r io.Reader, fieldNames []string) *JSONReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	return &JSONReader{scanner: scanner, FieldNames: fieldNames}
}

// ResolveKeyName sets KeyIndex to the position of name within
// FieldNames. Only meaningful after field names have been sniffed
// (i.e. after the first ReadRecord call) if FieldNames was not
// supplied up front.
func (r *JSONReader) ResolveKeyName(name string) error {
	for i, f := range r.FieldNames {
		if f == name {
			r.KeyIndex = i
			return nil
		}
	}
	return errors.Errorf("record: key field %q not found in %v", name, r.FieldNames)
}

// ReadRecord returns the next record, or io.EOF when exhausted.
func (r *JSONReader) ReadRecord() (Record, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, errors.Wrap(err, "record: scan json line")
		}
		return nil, io.EOF
	}
	var obj map[string]any
	if err := json.Unmarshal(r.scanner.Bytes(), &obj); err != nil {
		return nil, errors.Wrap(err, "record: decode json line")
	}
	if len(r.FieldNames) == 0 {
		names := make([]string, 0, len(obj))
		for k := range obj {
			names = append(names, k)
		}
		sort.Strings(names)
		r.FieldNames = names
	}
	rec := make(Record, len(r.FieldNames))
	for i, f := range r.FieldNames {
		rec[i] = normalizeJSONValue(obj[f])
	}
	return rec, nil
}

// normalizeJSONValue collapses encoding/json's float64-for-everything
// numeric decoding into int64 when the value has no fractional part,
// so that callers see the same int64/float64 split the CSV and binary
// paths produce.
func normalizeJSONValue(v any) any {
	f, ok := v.(float64)
	if !ok {
		return v
	}
	if f == float64(int64(f)) {
		return int64(f)
	}
	return f
}

// JSONWriter writes one JSON object per line.
type JSONWriter struct {
	w       *bufio.Writer
	indices []int
	names   []string
}

// NewJSONWriter creates a writer that selects fieldIndices from each
// record and labels the output object's keys with fieldNames.
func NewJSONWriter(w io.Writer, fieldIndices []int, fieldNames []string) (*JSONWriter, error) {
	if len(fieldIndices) != len(fieldNames) {
		return nil, errors.New("record: fieldIndices and fieldNames must have the same length")
	}
	if len(fieldIndices) == 0 {
		return nil, errors.New("record: nothing to output")
	}
	return &JSONWriter{w: bufio.NewWriter(w), indices: fieldIndices, names: fieldNames}, nil
}

// WriteRecord appends one record, projecting it through fieldIndices.
func (w *JSONWriter) WriteRecord(r Record) error {
	obj := make(map[string]any, len(w.indices))
	for i, idx := range w.indices {
		obj[w.names[i]] = r[idx]
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return errors.Wrap(err, "record: encode json record")
	}
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Flush flushes buffered output.
func (w *JSONWriter) Flush() error {
	return w.w.Flush()
}

func toJSONScalarString(v any) string {
	switch x := v.(type) {
	case int64:
		return fmt.Sprintf("%d", x)
	case int:
		return fmt.Sprintf("%d", x)
	case float64:
		return fmt.Sprintf("%g", x)
	case bool:
		return fmt.Sprintf("%t", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
