// Package shardkey implements the stable, well-distributed hash that
// maps a join-key to a shard number.
//
// The contract is a pure function of (key, N): identical inputs must
// yield identical shard indices across runs, processes and platforms.
// That is the sole correctness requirement, so any stable digest will
// do; the reference digest is MD5, kept here for byte-exact
// compatibility with known worked examples.
package shardkey

import (
	"crypto/md5"
	"fmt"
	"math/big"

	farm "github.com/dgryski/go-farm"
	seahash "blainsmith.com/go/seahash"
)

// Func maps an arbitrary key value to a shard index in [0, numShards).
// Implementations must be pure and deterministic.
type Func func(key any, numShards int) int

// Default is the MD5-mod hash: integer and other non-string keys are
// stringified before hashing, so shard assignment is stable across
// readers that represent the same logical value with different Go
// types.
func Default(key any, numShards int) int {
	return hashBytes(md5Sum(toBytes(key)), numShards)
}

// SeaHash is a pluggable alternative (seahash.Sum64(key) % N), faster
// than MD5 at the cost of weaker collision resistance, which is
// irrelevant here since shard assignment is not a security boundary.
func SeaHash(key any, numShards int) int {
	if numShards <= 0 {
		panic("shardkey: numShards must be positive")
	}
	sum := seahash.Sum64(toBytes(key))
	return int(sum % uint64(numShards))
}

// FarmHash is a second pluggable alternative, using
// github.com/dgryski/go-farm's non-cryptographic hash.
func FarmHash(key any, numShards int) int {
	if numShards <= 0 {
		panic("shardkey: numShards must be positive")
	}
	sum := farm.Hash64(toBytes(key))
	return int(sum % uint64(numShards))
}

func md5Sum(b []byte) []byte {
	sum := md5.Sum(b)
	return sum[:]
}

// hashBytes reduces a fixed-width digest to a shard index by treating
// the full digest as a big base-256 integer and taking it modulo
// numShards. This needs arbitrary-precision arithmetic (a 128-bit MD5
// digest overflows a uint64), hence math/big rather than truncating
// the digest.
func hashBytes(digest []byte, numShards int) int {
	if numShards <= 0 {
		panic("shardkey: numShards must be positive")
	}
	n := new(big.Int).SetBytes(digest)
	n.Mod(n, big.NewInt(int64(numShards)))
	return int(n.Int64())
}

// toBytes renders a key value as UTF-8 bytes, stringifying non-string
// scalars first so that e.g. int64(3) and "3" hash identically.
func toBytes(key any) []byte {
	switch v := key.(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	case nil:
		return nil
	default:
		return []byte(fmt.Sprintf("%v", v))
	}
}
