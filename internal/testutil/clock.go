// Package testutil provides deterministic clocks and identifier
// generators so that the engine, harness, and CLI tests produce stable
// timestamps and ids across runs.
package testutil

import (
	"sync"
	"time"
)

// TickingClock is a deterministic engine clock: it starts at a fixed
// instant and advances by a fixed step on every Now call. Two runs over
// the same operations see identical timestamps.
//
// Thread-safety: Now is safe for concurrent use via internal mutex.
type TickingClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewTickingClock creates a clock whose first Now returns start and each
// subsequent call advances by step.
func NewTickingClock(start time.Time, step time.Duration) *TickingClock {
	return &TickingClock{next: start.UTC(), step: step}
}

// Now returns the next instant in the sequence.
func (c *TickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

// FrozenClock always returns the same instant. Use it when a test only
// cares that timestamps are stable, not that they advance.
type FrozenClock struct {
	At time.Time
}

func (c FrozenClock) Now() time.Time { return c.At.UTC() }
