// Package partition implements the hash-partitioner: routing an input
// record stream into N sorted shard files plus a manifest.
package partition

import (
	"syscall"

	"github.com/pkg/errors"
)

// perShardFDs and perShardFDsLowCap bound the soft file-descriptor
// limit the partitioner requests before opening N simultaneous shard
// sinks (N*100 headroom for object-store streams, N*10 on constrained
// hosts with a low hard limit).
const (
	perShardFDs       = 100
	perShardFDsLowCap = 10
	lowCapHardLimit   = 4096
)

// raiseFDLimit raises the process's soft RLIMIT_NOFILE to cover
// numShards simultaneously open sinks, clamped to the hard limit, and
// returns a restore func that puts the old soft limit back.
func raiseFDLimit(numShards int) (restore func() error, err error) {
	var l syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &l); err != nil {
		return nil, errors.Wrap(err, "partition: getrlimit")
	}
	old := l

	perShard := perShardFDs
	if l.Max < lowCapHardLimit {
		perShard = perShardFDsLowCap
	}
	want := uint64(numShards) * uint64(perShard)
	if want < l.Cur {
		// Already sufficient; nothing to raise or restore.
		return func() error { return nil }, nil
	}
	if want > l.Max {
		want = l.Max
	}
	l.Cur = want
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &l); err != nil {
		return nil, errors.Wrap(err, "partition: setrlimit")
	}
	return func() error {
		return syscall.Setrlimit(syscall.RLIMIT_NOFILE, &old)
	}, nil
}
