package laned

import "sync/atomic"

// RoundRobinStrategy cycles through lanes in order. Stateless with respect
// to lanes; holds only its own atomic counter. No Initialize is required.
type RoundRobinStrategy struct {
	statelessBase
	counter atomic.Int32
}

// NewRoundRobinStrategy returns a ready-to-use round-robin strategy.
func NewRoundRobinStrategy() *RoundRobinStrategy {
	return &RoundRobinStrategy{}
}

func (s *RoundRobinStrategy) Name() string { return "round-robin" }

// Select returns (counter.Add(1) & math.MaxInt32) % n. Masking the sign
// bit keeps the index non-negative across counter overflow, which is the
// only way a non-power-of-two modulus stays correct.
func (s *RoundRobinStrategy) Select(n int) int {
	v := s.counter.Add(1)
	idx := int(v & 0x7fffffff)
	return idx % n
}

var _ SelectionStrategy = (*RoundRobinStrategy)(nil)
