package engine

import "time"

// Clock supplies write timestamps. Injected so that tests and the
// scenario harness can produce deterministic output.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
