package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNew_DefaultBurst(t *testing.T) {
	l := New(10, 0)
	if l.burst != 1 {
		t.Errorf("expected default burst 1, got %d", l.burst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	l := New(100, 1)
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("Wait failed: %v", err)
	}
}

func TestLimiter_ThrottledDoublesFactor(t *testing.T) {
	l := New(10, 1)
	if f := l.Throttled(); f != 2 {
		t.Errorf("expected factor 2 after first throttle, got %d", f)
	}
	if f := l.Throttled(); f != 4 {
		t.Errorf("expected factor 4 after second throttle, got %d", f)
	}
}

func TestLimiter_ThrottledCapsAtMax(t *testing.T) {
	l := New(10, 1)
	for i := 0; i < 10; i++ {
		l.Throttled()
	}
	if f := l.Factor(); f != MaxSlowdownFactor {
		t.Errorf("expected factor capped at %d, got %d", MaxSlowdownFactor, f)
	}
}

func TestLimiter_SucceededDoesNotRecoverBeforeWindow(t *testing.T) {
	l := New(10, 1)
	l.Throttled()
	l.Succeeded()
	if f := l.Factor(); f != 2 {
		t.Errorf("expected factor to remain 2 before recovery window elapses, got %d", f)
	}
}

func TestLimiter_SucceededRecoversAfterWindow(t *testing.T) {
	l := New(10, 1)
	l.Throttled()
	l.mu.Lock()
	l.lastThrottle = time.Now().Add(-RecoveryWindow - time.Second)
	l.mu.Unlock()
	l.Succeeded()
	if f := l.Factor(); f != 1 {
		t.Errorf("expected factor reset to 1 after recovery window, got %d", f)
	}
}

func TestRegistry_SetGet(t *testing.T) {
	r := NewRegistry()
	l := r.Set("CrossRef", 1, 1)
	if r.Get("CrossRef") != l {
		t.Error("expected Get to return the limiter set for the backend")
	}
	if r.Get("Unknown") != nil {
		t.Error("expected nil for unregistered backend")
	}
}
