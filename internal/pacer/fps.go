package pacer

import (
	"sync"
	"time"
)

// FPSCounter keeps a bounded ring of frame-to-frame durations and reports
// their moving average as frames per second.
type FPSCounter struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	count   int
	last    time.Time
}

// NewFPSCounter creates a counter holding up to size samples.
func NewFPSCounter(size int) *FPSCounter {
	if size < 1 {
		size = 1
	}
	return &FPSCounter{samples: make([]time.Duration, size)}
}

// Frame records a realized frame at now.
func (c *FPSCounter) Frame(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.last.IsZero() {
		d := now.Sub(c.last)
		if d > 0 {
			c.samples[c.next] = d
			c.next = (c.next + 1) % len(c.samples)
			if c.count < len(c.samples) {
				c.count++
			}
		}
	}
	c.last = now
}

// Resize changes the window length. The most recent samples are kept, up to
// the new size.
func (c *FPSCounter) Resize(size int) {
	if size < 1 {
		size = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if size == len(c.samples) {
		return
	}

	recent := c.recentLocked()
	if len(recent) > size {
		recent = recent[len(recent)-size:]
	}
	c.samples = make([]time.Duration, size)
	copy(c.samples, recent)
	c.count = len(recent)
	c.next = c.count % size
}

// recentLocked returns the samples oldest first.
func (c *FPSCounter) recentLocked() []time.Duration {
	out := make([]time.Duration, 0, c.count)
	start := c.next - c.count
	if start < 0 {
		start += len(c.samples)
	}
	for i := 0; i < c.count; i++ {
		out = append(out, c.samples[(start+i)%len(c.samples)])
	}
	return out
}

// FPS returns the average frame rate over the window, or 0 before two
// frames have been seen.
func (c *FPSCounter) FPS() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range c.recentLocked() {
		total += d
	}
	avg := total / time.Duration(c.count)
	if avg <= 0 {
		return 0
	}
	return float64(time.Second) / float64(avg)
}

// Len returns the number of samples held.
func (c *FPSCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Cap returns the window length.
func (c *FPSCounter) Cap() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}
