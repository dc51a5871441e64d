package record

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"
)

// CSVReader reads records from a CSV stream. Field names are sniffed
// from the header row when not supplied explicitly.
type CSVReader struct {
	r          *csv.Reader
	FieldNames []string
	KeyIndex   int
}

// NewCSVReader opens a CSV reader. If fieldNames is empty, the first
// row of r is consumed as the header and used as the field names; key
// may then be resolved against that header via ResolveKeyName.
func NewCSVReader(r io.Reader, fieldNames []string, comma rune) (*CSVReader, error) {
	cr := csv.NewReader(r)
	if comma != 0 {
		cr.Comma = comma
	}
	out := &CSVReader{r: cr, FieldNames: fieldNames}
	if len(out.FieldNames) == 0 {
		header, err := cr.Read()
		if err != nil {
			return nil, errors.Wrap(err, "record: read csv header")
		}
		out.FieldNames = header
	}
	return out, nil
}

// ResolveKeyName sets KeyIndex to the position of name within
// FieldNames.
func (r *CSVReader) ResolveKeyName(name string) error {
	for i, f := range r.FieldNames {
		if f == name {
			r.KeyIndex = i
			return nil
		}
	}
	return errors.Errorf("record: key field %q not found in %v", name, r.FieldNames)
}

// ReadRecord returns the next record, or io.EOF when exhausted.
func (r *CSVReader) ReadRecord() (Record, error) {
	row, err := r.r.Read()
	if err != nil {
		return nil, err
	}
	rec := make(Record, len(row))
	for i, v := range row {
		rec[i] = v
	}
	return rec, nil
}

// CSVWriter writes records as CSV. The header row is written only
// when writeHeader is true, since only shard 0's encoder should emit
// one when shard outputs are concatenated.
type CSVWriter struct {
	w            *csv.Writer
	fieldIndices []int
	wroteHeader  bool
}

// NewCSVWriter creates a writer that selects fieldIndices from each
// record and labels the output columns with fieldNames. If
// writeHeader is true, fieldNames is written as the first row.
func NewCSVWriter(w io.Writer, fieldIndices []int, fieldNames []string, writeHeader bool, comma rune) (*CSVWriter, error) {
	if len(fieldIndices) != len(fieldNames) {
		return nil, errors.New("record: fieldIndices and fieldNames must have the same length")
	}
	cw := csv.NewWriter(w)
	if comma != 0 {
		cw.Comma = comma
	}
	out := &CSVWriter{w: cw, fieldIndices: fieldIndices}
	if writeHeader {
		if err := cw.Write(fieldNames); err != nil {
			return nil, errors.Wrap(err, "record: write csv header")
		}
		out.wroteHeader = true
	}
	return out, nil
}

// WriteRecord appends one record, projecting it through fieldIndices.
func (w *CSVWriter) WriteRecord(r Record) error {
	row := make([]string, len(w.fieldIndices))
	for i, idx := range w.fieldIndices {
		row[i] = stringify(r[idx])
	}
	return w.w.Write(row)
}

// Flush flushes buffered output.
func (w *CSVWriter) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return toJSONScalarString(x)
	}
}
