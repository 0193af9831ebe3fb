package job

import "sync/atomic"

// Sequence hands out strictly increasing int64 identifiers. Identifiers are
// never reused within a process lifetime; jobs and users draw from
// independent sequences. Overflow handling is an explicit non-goal.
type Sequence struct {
	last atomic.Int64
}

// Next returns the next identifier, starting at 1.
func (s *Sequence) Next() int64 {
	return s.last.Add(1)
}

// Current returns the most recently issued identifier, or 0.
func (s *Sequence) Current() int64 {
	return s.last.Load()
}
