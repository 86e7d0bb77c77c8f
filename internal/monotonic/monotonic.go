// Package monotonic generates the strictly increasing integer timestamps the
// downstream detector requires. The detector rejects non-increasing
// timestamps as a hard error, so the contract is enforced structurally here
// rather than handled reactively: if the clock has not advanced past the
// previously returned value, the generator increments from that value instead.
package monotonic

import (
	"sync"
	"time"
)

// Generator produces strictly increasing timestamps in microseconds. One
// generator exists per detector instance; it is called once per frame
// actually processed, not once per arrival.
type Generator struct {
	mu   sync.Mutex
	now  func() int64
	last int64
}

// NewGenerator returns a generator backed by the wall clock in microseconds.
func NewGenerator() *Generator {
	return &Generator{now: func() int64 { return time.Now().UnixMicro() }}
}

// NewGeneratorWithClock returns a generator backed by now, which must report
// microseconds. Used by tests to exercise repeated and backward clock steps.
func NewGeneratorWithClock(now func() int64) *Generator {
	return &Generator{now: now}
}

// Next returns an integer strictly greater than every previously returned
// value, regardless of clock behavior.
func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	candidate := g.now()
	if candidate <= g.last {
		candidate = g.last + 1
	}
	g.last = candidate
	return candidate
}
