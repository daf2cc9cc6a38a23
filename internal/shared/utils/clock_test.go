package utils

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonotonicClock_StrictlyIncreasingWithFrozenSource(t *testing.T) {
	frozen := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := NewMonotonicClock(func() time.Time { return frozen })

	a := clock.Now()
	b := clock.Now()
	c := clock.Now()

	assert.True(t, b.After(a))
	assert.True(t, c.After(b))
	assert.Equal(t, time.Microsecond, b.Sub(a))
}

func TestMonotonicClock_ConcurrentUnique(t *testing.T) {
	clock := NewMonotonicClock(nil)

	var (
		mu   sync.Mutex
		seen = map[time.Time]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ts := clock.Now()
			mu.Lock()
			seen[ts] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(4000), ToMinorUnits(decimal.RequireFromString("40.00")))
	assert.Equal(t, int64(1999), ToMinorUnits(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(1), ToMinorUnits(decimal.RequireFromString("0.005")))
}

func TestParseUUIDs(t *testing.T) {
	ids, err := ParseUUIDs([]string{"6f1c5b0e-2b7a-4d55-9a77-0b1f0c1d2e3f"})
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	_, err = ParseUUIDs([]string{"nope"})
	assert.Error(t, err)
}
