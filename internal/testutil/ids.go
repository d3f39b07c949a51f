package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates ids "prefix-1", "prefix-2", ... in call order.
// Deterministic replacement for UUIDv7 generation in tests and golden
// scenarios.
//
// Thread-safety: NewID is safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequentialIDs creates a generator with the given prefix.
func NewSequentialIDs(prefix string) *SequentialIDs {
	return &SequentialIDs{prefix: prefix}
}

// NewID returns the next id in the sequence. The first call returns
// "prefix-1".
func (g *SequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}
