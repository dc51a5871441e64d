package record

import "github.com/pkg/errors"

func errInvalidKeyIndex(keyIndex, numFields int) error {
	return errors.Errorf("record: key_index %d out of range for %d fields", keyIndex, numFields)
}

func errDuplicateField(name string) error {
	return errors.Errorf("record: duplicate field name %q", name)
}
