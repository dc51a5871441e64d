package record

import "github.com/pkg/errors"

// CompareKeys orders two key values: lexicographic for strings,
// numeric for integers/floats, with nil (missing key) sorting first.
// Mixing incomparable types is an error rather than a silently
// arbitrary order. Returns a negative, zero, or positive int the way
// bytes.Compare does.
func CompareKeys(a, b any) (int, error) {
	if a == nil && b == nil {
		return 0, nil
	}
	if a == nil {
		return -1, nil
	}
	if b == nil {
		return 1, nil
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, errors.Errorf("record: mixed key types %T and %T", a, b)
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		default:
			return 0, nil
		}
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, errors.Errorf("record: mixed key types %T and %T", a, b)
		}
		switch {
		case av == bv:
			return 0, nil
		case !av:
			return -1, nil
		default:
			return 1, nil
		}
	default:
		af, ok := numeric(a)
		if !ok {
			return 0, errors.Errorf("record: unsupported key type %T", a)
		}
		bf, ok := numeric(b)
		if !ok {
			return 0, errors.Errorf("record: mixed key types %T and %T", a, b)
		}
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
}

func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
