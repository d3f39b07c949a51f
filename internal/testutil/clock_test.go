package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickingClock_AdvancesByStep(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := NewTickingClock(start, time.Second)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start.Add(time.Second), clock.Now())
	assert.Equal(t, start.Add(2*time.Second), clock.Now())
}

func TestTickingClock_Deterministic(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c1 := NewTickingClock(start, time.Minute)
	c2 := NewTickingClock(start, time.Minute)

	for i := 0; i < 50; i++ {
		assert.Equal(t, c1.Now(), c2.Now())
	}
}

func TestTickingClock_ThreadSafe(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := NewTickingClock(start, time.Second)

	const goroutines = 50
	const calls = 20

	var wg sync.WaitGroup
	wg.Add(goroutines)
	seen := make([][]time.Time, goroutines)
	for i := 0; i < goroutines; i++ {
		seen[i] = make([]time.Time, calls)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				seen[idx][j] = clock.Now()
			}
		}(i)
	}
	wg.Wait()

	all := make(map[time.Time]bool)
	for i := range seen {
		for _, v := range seen[i] {
			require.False(t, all[v], "duplicate instant %v", v)
			all[v] = true
		}
	}
	assert.Len(t, all, goroutines*calls)
}

func TestFrozenClock(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := FrozenClock{At: at}

	assert.Equal(t, at, clock.Now())
	assert.Equal(t, at, clock.Now())
}

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs("ix")

	assert.Equal(t, "ix-1", ids.NewID())
	assert.Equal(t, "ix-2", ids.NewID())
	assert.Equal(t, "ix-3", ids.NewID())
}
