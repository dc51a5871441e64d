// Package record defines the tuple/schema data model shared across
// the partitioner, partitioned-frame and merge-join packages, plus
// the record encoders/decoders (CSV, JSON, and this module's own
// binary framing) that sit at the CLI's input/output boundary.
package record

// Record is an ordered tuple of scalar field values. A nil element
// represents SQL-style NULL. Field count and order are fixed by the
// enclosing Schema.
type Record []any

// Clone returns a shallow copy, used whenever a Record must outlive
// the buffer it was decoded into.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	copy(out, r)
	return out
}

// Schema describes the shape of a Record stream: the ordered field
// names and the index of the designated join key.
type Schema struct {
	FieldNames []string
	KeyIndex   int
}

// Key extracts the join-key value from a record according to this
// schema.
func (s Schema) Key(r Record) any {
	return r[s.KeyIndex]
}

// KeyName returns the name of the join-key field.
func (s Schema) KeyName() string {
	return s.FieldNames[s.KeyIndex]
}

// Validate checks that 0 <= key_index < len(field_names) and that
// field names are unique.
func (s Schema) Validate() error {
	if s.KeyIndex < 0 || s.KeyIndex >= len(s.FieldNames) {
		return errInvalidKeyIndex(s.KeyIndex, len(s.FieldNames))
	}
	seen := make(map[string]struct{}, len(s.FieldNames))
	for _, f := range s.FieldNames {
		if _, dup := seen[f]; dup {
			return errDuplicateField(f)
		}
		seen[f] = struct{}{}
	}
	return nil
}

// Project returns the subset of field names at the given indices.
func (s Schema) Project(indices []int) Schema {
	names := make([]string, len(indices))
	keyIndex := -1
	for i, idx := range indices {
		names[i] = s.FieldNames[idx]
		if idx == s.KeyIndex {
			keyIndex = i
		}
	}
	return Schema{FieldNames: names, KeyIndex: keyIndex}
}
