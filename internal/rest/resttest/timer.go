// Package resttest provides test helpers for code built on package rest.
package resttest

import (
	"sync"
	"time"
)

// Timer is a backoff.Timer that fires immediately and records every
// requested delay.
type Timer struct {
	mu     sync.Mutex
	delays []time.Duration
	c      chan time.Time
}

// NewTimer returns a Timer with no recorded delays.
func NewTimer() *Timer {
	return &Timer{}
}

// Start records d and fires at once.
func (t *Timer) Start(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delays = append(t.delays, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

// Stop is a no-op.
func (t *Timer) Stop() {}

// C returns the channel armed by the last Start.
func (t *Timer) C() <-chan time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.c
}

// Delays returns a copy of the recorded delays.
func (t *Timer) Delays() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.delays...)
}
