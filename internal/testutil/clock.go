package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is where a DeterministicClock starts: 2024-01-01T00:00:00Z.
const DefaultEpoch int64 = 1704067200000

// DeterministicClock is a stepping wall clock for tests.
//
// Every call to Now returns the previous instant plus Step, so timestamps
// written during a test are distinct, ordered and reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	ms   int64
	step int64
}

// NewDeterministicClock creates a clock at DefaultEpoch that advances by one
// millisecond per reading.
//
// The first call to Now() returns DefaultEpoch + 1ms.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{ms: DefaultEpoch, step: 1}
}

// Now advances the clock by its step and returns the new instant.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ms += c.step
	return time.UnixMilli(c.ms).UTC()
}

// Current returns the last instant in epoch milliseconds without advancing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ms
}

// SetStep changes how far each reading advances the clock.
func (c *DeterministicClock) SetStep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = d.Milliseconds()
}

// Reset puts the clock back at DefaultEpoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ms = DefaultEpoch
}
