package pacer

import (
	"sync"
	"testing"
	"time"
)

func TestInterval(t *testing.T) {
	tests := []struct {
		fps  int
		want time.Duration
	}{
		{60, time.Second/60 - time.Millisecond},
		{30, time.Second/30 - time.Millisecond},
		{1, time.Second - time.Millisecond},
		{0, time.Second - time.Millisecond},
		{5000, time.Millisecond},
	}
	for _, tt := range tests {
		if got := Interval(tt.fps); got != tt.want {
			t.Fatalf("Interval(%d): expected %v, got %v", tt.fps, tt.want, got)
		}
	}
}

func TestTick_CoalescesOutstandingInvalidates(t *testing.T) {
	var queue []func()
	invalidates := 0
	p := New(Config{
		TargetRate:   60,
		Post:         func(fn func()) { queue = append(queue, fn) },
		OnInvalidate: func() { invalidates++ },
	})

	for i := 0; i < 5; i++ {
		p.Tick()
	}
	if len(queue) != 1 {
		t.Fatalf("expected one posted invalidate, got %d", len(queue))
	}
	if s := p.Stats(); s.Ticks != 5 || s.Skipped != 4 {
		t.Fatalf("expected 5 ticks / 4 skipped, got %+v", s)
	}

	queue[0]()
	queue = queue[:0]
	if invalidates != 1 {
		t.Fatalf("expected invalidate to run once, got %d", invalidates)
	}

	p.Tick()
	if len(queue) != 1 {
		t.Fatalf("expected a new invalidate after the previous one ran, got %d", len(queue))
	}
}

func TestTick_PanicInInvalidateClearsPending(t *testing.T) {
	var queue []func()
	p := New(Config{
		Post:         func(fn func()) { queue = append(queue, fn) },
		OnInvalidate: func() { panic("bad frame") },
	})
	p.Tick()
	queue[0]()
	p.Tick()
	if len(queue) != 2 {
		t.Fatalf("expected pacing to continue after a panicking frame, got %d posts", len(queue))
	}
}

func TestSetTargetRate_ResizesWindowWithoutClearing(t *testing.T) {
	now := time.Unix(0, 0)
	p := New(Config{TargetRate: 60, Now: func() time.Time { return now }})

	for i := 0; i < 61; i++ {
		p.FrameRendered()
		now = now.Add(20 * time.Millisecond)
	}
	if n, c := p.FPSWindow(); n != 60 || c != 60 {
		t.Fatalf("expected full 60-sample window, got %d/%d", n, c)
	}
	before := p.RealizedFPS()

	p.SetTargetRate(30)
	if got := p.Interval(); got < 30*time.Millisecond || got > 34*time.Millisecond {
		t.Fatalf("expected ~33ms interval at 30fps, got %v", got)
	}
	n, c := p.FPSWindow()
	if c != 30 || n != 30 {
		t.Fatalf("expected window resized to 30 and kept full, got %d/%d", n, c)
	}
	if after := p.RealizedFPS(); after != before {
		t.Fatalf("expected realized fps preserved across resize, got %v then %v", before, after)
	}
}

func TestStartStop_TicksFromOwnGoroutine(t *testing.T) {
	var mu sync.Mutex
	count := 0
	enough := make(chan struct{})
	p := New(Config{
		TargetRate: 200,
		Post:       func(fn func()) { fn() },
		OnInvalidate: func() {
			mu.Lock()
			defer mu.Unlock()
			count++
			if count == 3 {
				close(enough)
			}
		},
	})

	p.Start()
	p.Start()
	select {
	case <-enough:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected ticks within 2s")
	}
	p.SetTargetRate(100)
	p.Stop()
	p.Stop()

	if p.Running() {
		t.Fatalf("expected pacer stopped")
	}
	mu.Lock()
	stopped := count
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != stopped {
		t.Fatalf("expected no ticks after Stop, got %d more", count-stopped)
	}
}
