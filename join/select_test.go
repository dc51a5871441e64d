package join

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/datawelder/dwerr"
	"github.com/grailbio/datawelder/record"
)

func schemas2() []record.Schema {
	return []record.Schema{
		{FieldNames: []string{"iso", "name"}, KeyIndex: 0},
		{FieldNames: []string{"iso", "currency"}, KeyIndex: 0},
	}
}

func TestResolveSelectDefaultSuppressesRightKey(t *testing.T) {
	layout, err := ResolveSelect(schemas2(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"iso", "name", "currency"}, layout.FieldNames)
	assert.Equal(t, []int{0, 1, 3}, layout.Indices)
}

func TestResolveSelectS6(t *testing.T) {
	layout, err := ResolveSelect(schemas2(), "iso, name, 1.iso as iso_r, currency")
	require.NoError(t, err)
	assert.Equal(t, []string{"iso", "name", "iso_r", "currency"}, layout.FieldNames)
	assert.Equal(t, []int{0, 1, 2, 3}, layout.Indices)
}

func TestResolveSelectAmbiguous(t *testing.T) {
	schemas := []record.Schema{
		{FieldNames: []string{"iso", "name"}, KeyIndex: 0},
		{FieldNames: []string{"name", "currency"}, KeyIndex: 1},
	}
	_, err := ResolveSelect(schemas, "name")
	assert.ErrorIs(t, err, dwerr.ErrSelectAmbiguous)
}

func TestResolveSelectUnknownField(t *testing.T) {
	_, err := ResolveSelect(schemas2(), "nosuchfield")
	assert.ErrorIs(t, err, dwerr.ErrSelectUnknown)
}

func TestResolveSelectDuplicateAlias(t *testing.T) {
	_, err := ResolveSelect(schemas2(), "iso as x, name as x")
	assert.ErrorIs(t, err, dwerr.ErrSelectDuplicateAlias)
}

func TestResolveSelectFrameQualified(t *testing.T) {
	layout, err := ResolveSelect(schemas2(), "0.iso, 1.currency")
	require.NoError(t, err)
	assert.Equal(t, []string{"iso", "currency"}, layout.FieldNames)
	assert.Equal(t, []int{0, 3}, layout.Indices)
}

func TestResolveSelectFrameNumberOutOfRange(t *testing.T) {
	_, err := ResolveSelect(schemas2(), "5.iso")
	assert.ErrorIs(t, err, dwerr.ErrSelectUnknown)
}
