package utils

import (
	"sync"
	"time"
)

// Clock abstracts time for services and tests
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// MonotonicClock hands out strictly increasing UTC timestamps at microsecond
// resolution (what Postgres timestamptz stores). Two calls never return the
// same instant, so "created before" is a total order within one process.
type MonotonicClock struct {
	mu   sync.Mutex
	last time.Time
	src  func() time.Time
}

func NewMonotonicClock(src func() time.Time) *MonotonicClock {
	if src == nil {
		src = time.Now
	}
	return &MonotonicClock{src: src}
}

func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.src().UTC().Truncate(time.Microsecond)
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}
