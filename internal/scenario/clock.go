package scenario

import "sync"

// Clock is the simulated millisecond clock a run advances explicitly.
// Every timestamp in a run's records comes from here, never from the wall
// clock, so replays are reproducible.
type Clock struct {
	mu    sync.Mutex
	nowMs int64
}

// NewClock creates a clock at the given start time.
func NewClock(startMs int64) *Clock {
	return &Clock{nowMs: startMs}
}

// NowMs returns the current simulated time.
func (c *Clock) NowMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowMs
}

// Advance moves the clock forward. Negative deltas are ignored.
func (c *Clock) Advance(deltaMs int64) {
	if deltaMs < 0 {
		return
	}
	c.mu.Lock()
	c.nowMs += deltaMs
	c.mu.Unlock()
}
