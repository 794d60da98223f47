// Package correlation issues the ids that group the log lines of one
// health-check tick.
package correlation

import "sync/atomic"

// Sequence is a process-wide, monotonically increasing id source.
// The zero value is ready to use and starts at zero.
type Sequence struct {
	last atomic.Int64
}

// Next returns the next id. The first call returns 1.
func (s *Sequence) Next() int64 {
	return s.last.Add(1)
}

// Current returns the last issued id, or 0 if none was issued.
func (s *Sequence) Current() int64 {
	return s.last.Load()
}
