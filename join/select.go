package join

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/grailbio/datawelder/dwerr"
	"github.com/grailbio/datawelder/record"
)

// Layout is the resolved output of a SELECT expression: the output
// field names and the index, into the concatenated joined row, that
// each output column is drawn from.
type Layout struct {
	FieldNames []string
	Indices    []int
}

// qualifiedNames assigns "FRAMENUM.NAME"-qualified names to every
// position of a joined row.
func qualifiedNames(schemas []record.Schema) []string {
	var names []string
	for i, s := range schemas {
		for _, f := range s.FieldNames {
			names = append(names, fmt.Sprintf("%d.%s", i, f))
		}
	}
	return names
}

// ResolveSelect computes the output Layout for a joined row made of
// schemas in frame order. An empty expr selects every field of every
// frame, suppressing redundant join-key copies from right-hand frames
// (index > 0). A non-empty expr is a comma-separated list of NAME,
// FRAMENUM.NAME, NAME as ALIAS, or FRAMENUM.NAME as ALIAS clauses.
func ResolveSelect(schemas []record.Schema, expr string) (Layout, error) {
	qualified := qualifiedNames(schemas)

	if strings.TrimSpace(expr) == "" {
		return defaultLayout(schemas), nil
	}

	clauses, err := parseSelect(expr)
	if err != nil {
		return Layout{}, err
	}

	aliasesSeen := make(map[string]struct{}, len(clauses))
	layout := Layout{}
	keptFromFrame := make([]bool, len(schemas))

	for _, c := range clauses {
		idx, frameNum, err := resolveClause(schemas, qualified, c)
		if err != nil {
			return Layout{}, err
		}
		alias := c.alias
		if _, dup := aliasesSeen[alias]; dup {
			return Layout{}, errors.Wrapf(dwerr.ErrSelectDuplicateAlias, "alias %q", alias)
		}
		aliasesSeen[alias] = struct{}{}
		layout.FieldNames = append(layout.FieldNames, alias)
		layout.Indices = append(layout.Indices, idx)
		if frameNum >= 0 {
			keptFromFrame[frameNum] = true
		}
	}

	for i, kept := range keptFromFrame {
		if !kept {
			return Layout{}, errors.Wrapf(dwerr.ErrSelectNothingSelected, "frame %d", i)
		}
	}

	return layout, nil
}

// defaultLayout is the no-expression default: every field of every
// frame in frame order, with redundant right-side copies of the join
// key suppressed. A field keeps its plain name the first time that
// name appears and is named NAME_FRAMENUM on later collisions.
func defaultLayout(schemas []record.Schema) Layout {
	layout := Layout{}
	seen := make(map[string]struct{})
	pos := 0
	for frameNum, s := range schemas {
		for fieldIdx, name := range s.FieldNames {
			if frameNum > 0 && fieldIdx == s.KeyIndex {
				pos++
				continue
			}
			alias := name
			if _, dup := seen[alias]; dup {
				alias = fmt.Sprintf("%s_%d", name, frameNum)
			}
			seen[alias] = struct{}{}
			layout.FieldNames = append(layout.FieldNames, alias)
			layout.Indices = append(layout.Indices, pos)
			pos++
		}
	}
	return layout
}

type selectClause struct {
	frameNum int
	field    string
	alias    string
}

// parseSelect parses a SELECT expression into ordered clauses.
func parseSelect(expr string) ([]selectClause, error) {
	parts := strings.Split(expr, ",")
	clauses := make([]selectClause, 0, len(parts))
	for _, raw := range parts {
		clause := strings.TrimSpace(raw)
		if clause == "" {
			return nil, errors.Wrapf(dwerr.ErrSelectUnknown, "empty select clause in %q", expr)
		}
		words := strings.Fields(clause)

		var ref, alias string
		switch {
		case len(words) == 3 && strings.EqualFold(words[1], "as"):
			ref, alias = words[0], words[2]
		case len(words) == 1:
			ref, alias = words[0], ""
		default:
			return nil, errors.Errorf("join: bad SELECT clause %q", clause)
		}

		frameNum, field, hasFrame := strings.Cut(ref, ".")
		if alias == "" {
			if hasFrame {
				alias = field
			} else {
				alias = ref
			}
		}

		c := selectClause{field: ref, alias: alias}
		if hasFrame {
			n, err := strconv.Atoi(frameNum)
			if err != nil {
				return nil, errors.Wrapf(dwerr.ErrSelectUnknown, "bad frame number in %q", ref)
			}
			c.frameNum = n
			c.field = field
		} else {
			c.frameNum = -1
			c.field = ref
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

// resolveClause finds the joined-row position for one parsed clause,
// applying the ambiguity and range rules below. Also returns the
// number of the frame the clause resolved to (for an unqualified
// clause, the one frame its name was found in) for the
// nothing-selected check.
func resolveClause(schemas []record.Schema, qualified []string, c selectClause) (pos int, frameNum int, err error) {
	if c.frameNum >= 0 {
		if c.frameNum >= len(schemas) {
			return 0, 0, errors.Wrapf(dwerr.ErrSelectUnknown, "frame number %d out of range [0,%d)", c.frameNum, len(schemas))
		}
		want := fmt.Sprintf("%d.%s", c.frameNum, c.field)
		for i, q := range qualified {
			if q == want {
				return i, c.frameNum, nil
			}
		}
		return 0, 0, errors.Wrapf(dwerr.ErrSelectUnknown, "field %q not found in frame %d", c.field, c.frameNum)
	}

	// Redundant right-side join-key copies are invisible to unqualified
	// lookup, the same way they are suppressed from the default
	// selection; they remain reachable via explicit FRAMENUM.NAME
	// qualification.
	matches := 0
	var matchPos, matchFrame int
	pos = 0
	for frame, s := range schemas {
		for fieldIdx, name := range s.FieldNames {
			isRedundantRightKey := frame > 0 && fieldIdx == s.KeyIndex
			if name == c.field && !isRedundantRightKey {
				matches++
				matchPos, matchFrame = pos, frame
			}
			pos++
		}
	}
	switch matches {
	case 0:
		return 0, 0, errors.Wrapf(dwerr.ErrSelectUnknown, "field %q not found in any frame", c.field)
	case 1:
		return matchPos, matchFrame, nil
	default:
		return 0, 0, errors.Wrapf(dwerr.ErrSelectAmbiguous, "field %q occurs in %d frames; qualify as FRAMENUM.%s", c.field, matches, c.field)
	}
}
