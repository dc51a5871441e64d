// Package join implements the N-way streaming left-outer merge-join
// kernel, its SELECT field resolver, and the per-shard worker
// dispatcher that fans a join out across shards and concatenates
// their outputs.
package join

import (
	"io"

	"github.com/pkg/errors"

	"github.com/grailbio/datawelder/dwerr"
	"github.com/grailbio/datawelder/record"
)

// MergeReader performs the N-way streaming left-outer merge join:
// every left record is emitted exactly once, each right side
// contributing either its matching record or a null row of its own
// width. It keeps one peeked-ahead record per right side, advancing
// each while its key is less than the current left key, and detects
// out-of-order input on either side as a sort violation rather than
// silently producing a wrong join.
type MergeReader struct {
	left   record.Reader
	rights []record.Reader

	peek        []record.Record // current peeked record per right side, nil if exhausted
	peekErr     error
	nullRows    []record.Record
	prevRightKy []any
	hasPrevRK   []bool

	prevLeftKey any
	hasPrevLeft bool

	done bool
}

// NewMergeReader constructs a merge join over one left reader and one
// or more right readers, all representing the same shard index of
// their respective frames and all sorted ascending by their own key
// field.
func NewMergeReader(left record.Reader, rights []record.Reader) (*MergeReader, error) {
	if len(rights) == 0 {
		return nil, errors.New("join: at least one right-side frame is required")
	}
	m := &MergeReader{
		left:        left,
		rights:      rights,
		peek:        make([]record.Record, len(rights)),
		nullRows:    make([]record.Record, len(rights)),
		prevRightKy: make([]any, len(rights)),
		hasPrevRK:   make([]bool, len(rights)),
	}
	for i, r := range rights {
		m.nullRows[i] = make(record.Record, len(r.Schema().FieldNames))
		rec, err := advance(r)
		if err != nil {
			return nil, err
		}
		m.peek[i] = rec
		if rec != nil {
			m.prevRightKy[i] = rec[r.Schema().KeyIndex]
			m.hasPrevRK[i] = true
		}
	}
	return m, nil
}

// advance reads the next record from r, translating io.EOF into a nil
// record with no error.
func advance(r record.Reader) (record.Record, error) {
	rec, err := r.ReadRecord()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Next returns the next joined row, or io.EOF once the left side is
// exhausted. The returned row has length |left.fields| +
// sum(|right_i.fields|).
func (m *MergeReader) Next() (record.Record, error) {
	if m.done {
		return nil, io.EOF
	}

	leftRec, err := m.left.ReadRecord()
	if err == io.EOF {
		m.done = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}

	leftKeyIdx := m.left.Schema().KeyIndex
	leftKey := leftRec[leftKeyIdx]
	if m.hasPrevLeft {
		cmp, cerr := record.CompareKeys(m.prevLeftKey, leftKey)
		if cerr != nil {
			return nil, errors.Wrap(cerr, "join: left side key comparison")
		}
		if cmp > 0 {
			return nil, errors.Wrapf(dwerr.ErrSortViolation, "left side: key went from %v to %v", m.prevLeftKey, leftKey)
		}
	}
	m.prevLeftKey = leftKey
	m.hasPrevLeft = true

	out := make(record.Record, 0, len(leftRec)+sumWidths(m.rights))
	out = append(out, leftRec...)

	for i, r := range m.rights {
		keyIdx := r.Schema().KeyIndex
		for m.peek[i] != nil {
			cmp, cerr := record.CompareKeys(m.peek[i][keyIdx], leftKey)
			if cerr != nil {
				return nil, errors.Wrap(cerr, "join: right side key comparison")
			}
			if cmp >= 0 {
				break
			}
			next, aerr := advance(r)
			if aerr != nil {
				return nil, aerr
			}
			if next != nil {
				if err := m.checkRightOrder(i, next[keyIdx]); err != nil {
					return nil, err
				}
			}
			m.peek[i] = next
		}

		if m.peek[i] != nil {
			cmp, cerr := record.CompareKeys(m.peek[i][keyIdx], leftKey)
			if cerr != nil {
				return nil, errors.Wrap(cerr, "join: right side key comparison")
			}
			if cmp == 0 {
				out = append(out, m.peek[i]...)
				continue
			}
		}
		out = append(out, m.nullRows[i]...)
	}

	return out, nil
}

// checkRightOrder records newKey as the latest observed key for right
// side i and fails if it went backwards. prevRightKy is seeded from
// the initial peek in NewMergeReader, so the very first advance past
// it is checked too.
func (m *MergeReader) checkRightOrder(i int, newKey any) error {
	if m.hasPrevRK[i] {
		cmp, err := record.CompareKeys(m.prevRightKy[i], newKey)
		if err != nil {
			return errors.Wrap(err, "join: right side key comparison")
		}
		if cmp > 0 {
			return errors.Wrapf(dwerr.ErrSortViolation, "right side %d: key went from %v to %v", i, m.prevRightKy[i], newKey)
		}
	}
	m.prevRightKy[i] = newKey
	m.hasPrevRK[i] = true
	return nil
}

func sumWidths(rights []record.Reader) int {
	n := 0
	for _, r := range rights {
		n += len(r.Schema().FieldNames)
	}
	return n
}
