// Package dwerr defines the error taxonomy shared by the partitioner,
// partitioned-frame, and merge-join packages.
//
// Callers should compare with errors.Is, since concrete errors are
// always wrapped with additional context via github.com/pkg/errors.
package dwerr

import "github.com/pkg/errors"

var (
	// ErrInvalidManifest covers an unknown config_format or a manifest
	// missing required fields.
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrShardCountMismatch is returned before any join work begins when
	// the frames being joined disagree on num_partitions.
	ErrShardCountMismatch = errors.New("shard count mismatch between frames")

	// ErrMissingKey marks a record with an absent or null join key.
	// Partitioning treats this as non-fatal: the record is skipped and
	// counted, never returned as an error to the caller.
	ErrMissingKey = errors.New("record missing join key")

	// ErrSortViolation is raised by the merge-join kernel when a shard
	// is observed to be out of order.
	ErrSortViolation = errors.New("sort violation: shard is not sorted by key")

	// ErrSelectAmbiguous, ErrSelectUnknown and ErrSelectDuplicateAlias
	// are field-resolver failures.
	ErrSelectAmbiguous       = errors.New("select: ambiguous field name")
	ErrSelectUnknown         = errors.New("select: unknown field")
	ErrSelectDuplicateAlias  = errors.New("select: duplicate alias")
	ErrSelectNothingSelected = errors.New("select: no fields kept from a frame")

	// ErrIO wraps an underlying byte-stream failure that was not
	// retryable (or exhausted its retries).
	ErrIO = errors.New("io error")

	// ErrFraming marks a corrupt or truncated shard file.
	ErrFraming = errors.New("framing error: corrupt or truncated shard file")
)
