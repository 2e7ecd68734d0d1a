package xeq

import (
	"sync"
	"time"
)

// Clock schedules the auto iterator. Times are in milliseconds.
type Clock interface {
	// Delay calls fn once after ms, replacing any pending call.
	Delay(ms float64, fn func())
	// Unset cancels the pending call, if any.
	Unset()
	// Since returns the time elapsed since the last Delay.
	Since() float64
	// Now returns the time elapsed since the clock was created.
	Now() float64
}

type realClock struct {
	mu    sync.Mutex
	start time.Time
	set   time.Time
	timer *time.Timer
}

// NewClock returns a wall clock driven by time.AfterFunc. Callbacks run on
// their own goroutine.
func NewClock() Clock {
	now := time.Now()
	return &realClock{start: now, set: now}
}

func (c *realClock) Delay(ms float64, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	if ms < 0 {
		ms = 0
	}
	c.set = time.Now()
	c.timer = time.AfterFunc(msDuration(ms), fn)
}

func (c *realClock) Unset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *realClock) Since() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return durationMs(time.Since(c.set))
}

func (c *realClock) Now() float64 {
	return durationMs(time.Since(c.start))
}

func msDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// ManualClock is a virtual clock for offline rendering and tests. Time only
// moves when Advance is called; due callbacks run on the caller's goroutine.
type ManualClock struct {
	mu    sync.Mutex
	now   float64
	setAt float64
	due   float64
	fn    func()
}

func NewManualClock() *ManualClock { return &ManualClock{} }

func (c *ManualClock) Delay(ms float64, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ms < 0 {
		ms = 0
	}
	c.setAt = c.now
	c.due = c.now + ms
	c.fn = fn
}

func (c *ManualClock) Unset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fn = nil
}

func (c *ManualClock) Since() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now - c.setAt
}

func (c *ManualClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Pending reports whether a callback is scheduled, and when.
func (c *ManualClock) Pending() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.due, c.fn != nil
}

// Advance moves time forward by ms, firing every callback that falls due on
// the way, in order. Callbacks may schedule further calls.
func (c *ManualClock) Advance(ms float64) {
	c.mu.Lock()
	target := c.now + ms
	c.mu.Unlock()
	for {
		c.mu.Lock()
		if c.fn == nil || c.due > target {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = c.due
		fn := c.fn
		c.fn = nil
		c.mu.Unlock()
		fn()
	}
}

// Run fires callbacks until none is pending or limit time has passed, and
// returns the time reached.
func (c *ManualClock) Run(limit float64) float64 {
	for {
		due, ok := c.Pending()
		if !ok || due > limit {
			return c.Now()
		}
		c.Advance(due - c.Now())
	}
}
