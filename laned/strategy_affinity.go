package laned

import (
	"bytes"
	"runtime"
	"strconv"
)

// ThreadAffinityStrategy routes every selection on a given goroutine to
// the same lane index, for callers whose protocol needs per-connection
// server-side state to survive across a sequence of operations (e.g.
// watch/multi/exec style transactions) — the core itself never guarantees
// that affinity, but this strategy is how a caller can opt into it.
//
// Stateless, zero storage: no thread-local slots are used, so there is no
// teardown obligation and nothing to leak across a long-lived worker's
// lifetime. The index is recomputed from the calling goroutine's id on
// every call instead.
type ThreadAffinityStrategy struct {
	statelessBase
}

// NewThreadAffinityStrategy returns a ready-to-use thread-affinity
// strategy.
func NewThreadAffinityStrategy() *ThreadAffinityStrategy {
	return &ThreadAffinityStrategy{}
}

func (s *ThreadAffinityStrategy) Name() string { return "thread-affinity" }

// Select returns (mix(goroutineID()) & math.MaxInt32) % n. Raw goroutine
// ids are assigned sequentially, so hashing without the avalanche mix
// would map sequential ids to sequential lanes — exactly the pathology a
// worker-pool startup burst would trigger.
func (s *ThreadAffinityStrategy) Select(n int) int {
	h := mix64(uint64(goroutineID()))
	idx := int32(h) & 0x7fffffff
	return int(idx) % n
}

var _ SelectionStrategy = (*ThreadAffinityStrategy)(nil)

// mix64 is the MurmurHash3 64-bit finalizer, chosen for its avalanche
// property at low cost.
func mix64(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

// goroutineID returns the current goroutine's runtime id, parsed from its
// stack trace header ("goroutine 123 [running]:"). Go assigns these
// sequentially and never reuses one while the goroutine is alive, which
// is exactly the "stable, never-reused for the thread's entire lifetime"
// property the strategy needs — unlike an OS thread-pool id, a goroutine
// id cannot be handed to a different logical task mid-execution. This is
// not a nanosecond-scale operation (it formats and re-parses a stack
// frame), a deliberate trade against the alternative of goroutine-local
// storage, which the design note above rules out.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	field := bytes.Fields(buf[:n])
	if len(field) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(field[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
