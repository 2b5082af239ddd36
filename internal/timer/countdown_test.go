package timer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCountdownTicksAndExpires(t *testing.T) {
	c := New(10 * time.Millisecond)

	var ticks atomic.Int32
	var expires atomic.Int32
	done := make(chan struct{})

	err := c.Start(50*time.Millisecond, func(remaining time.Duration) {
		ticks.Add(1)
		if remaining < 0 {
			t.Errorf("negative remaining: %v", remaining)
		}
	}, func() {
		expires.Add(1)
		close(done)
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown never expired")
	}

	if got := expires.Load(); got != 1 {
		t.Errorf("onExpire fired %d times, want 1", got)
	}
	if ticks.Load() < 2 {
		t.Errorf("ticks = %d, want at least 2", ticks.Load())
	}
}

func TestCountdownExpiresOnceDespiteStop(t *testing.T) {
	c := New(5 * time.Millisecond)

	var expires atomic.Int32
	done := make(chan struct{})
	err := c.Start(20*time.Millisecond, func(time.Duration) {}, func() {
		expires.Add(1)
		close(done)
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	<-done
	c.Stop()
	c.Stop()
	time.Sleep(30 * time.Millisecond)

	if got := expires.Load(); got != 1 {
		t.Errorf("onExpire fired %d times, want 1", got)
	}
}

func TestCountdownStopPreventsCallbacks(t *testing.T) {
	c := New(5 * time.Millisecond)

	var mu sync.Mutex
	stopped := false
	fired := false

	err := c.Start(time.Hour, func(time.Duration) {
		mu.Lock()
		if stopped {
			fired = true
		}
		mu.Unlock()
	}, func() {
		mu.Lock()
		if stopped {
			fired = true
		}
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	c.Stop()
	mu.Lock()
	stopped = true
	mu.Unlock()

	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired {
		t.Error("callback delivered after Stop returned")
	}
}

func TestCountdownSingleUse(t *testing.T) {
	c := New(time.Millisecond)
	if err := c.Start(time.Hour, func(time.Duration) {}, func() {}); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop()

	if err := c.Start(time.Hour, func(time.Duration) {}, func() {}); err == nil {
		t.Error("second start succeeded, want error")
	}
}

func TestCountdownStartAfterStop(t *testing.T) {
	c := New(time.Millisecond)
	c.Stop()
	if err := c.Start(time.Hour, func(time.Duration) {}, func() {}); err == nil {
		t.Error("start after stop succeeded, want error")
	}
}
