package shardkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDefaultReferenceVectors pins the MD5-mod reference values from
// spec scenario S1.
func TestDefaultReferenceVectors(t *testing.T) {
	assert.Equal(t, 291, Default("hello world", 1000))
	assert.Equal(t, 3, Default("AU", 5))
	assert.Equal(t, 4, Default("JP", 5))
	assert.Equal(t, 0, Default("RU", 5))
}

func TestDefaultStringifiesIntegers(t *testing.T) {
	assert.Equal(t, Default("42", 7), Default(42, 7))
}

func TestDefaultIsDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Equal(t, Default("stable-key", 997), Default("stable-key", 997))
	}
}

func TestAlternateHashesAreDeterministicAndInRange(t *testing.T) {
	for _, fn := range []Func{Default, SeaHash, FarmHash} {
		for _, n := range []int{1, 2, 5, 1000} {
			got := fn("some/join/key", n)
			assert.GreaterOrEqual(t, got, 0)
			assert.Less(t, got, n)
			assert.Equal(t, got, fn("some/join/key", n))
		}
	}
}

func TestDefaultSingleShardAlwaysZero(t *testing.T) {
	assert.Equal(t, 0, Default("anything", 1))
}
