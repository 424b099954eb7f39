package pipeline

import (
	"testing"
	"time"
)

func newTestThrottle() *Throttle {
	return NewThrottle(10, 100, 50*time.Millisecond, 40*time.Millisecond, 0.8, 1.05)
}

func TestThrottleNeverLeavesBounds(t *testing.T) {
	th := newTestThrottle()
	for i := 0; i < 200; i++ {
		if got := th.Observe(120 * time.Millisecond); got < 10 {
			t.Fatalf("step %d: batch %d below floor", i, got)
		}
	}
	if got := th.Current(); got != 10 {
		t.Errorf("after sustained stress = %d, want 10", got)
	}
	for i := 0; i < 500; i++ {
		if got := th.Observe(5 * time.Millisecond); got > 100 {
			t.Fatalf("step %d: batch %d above ceiling", i, got)
		}
	}
	if got := th.Current(); got != 100 {
		t.Errorf("after recovery = %d, want 100", got)
	}
}

func TestThrottleMultiplicativeSteps(t *testing.T) {
	th := newTestThrottle()
	if got := th.Observe(60 * time.Millisecond); got != 80 {
		t.Errorf("first decrease = %d, want 80", got)
	}
	if got := th.Observe(60 * time.Millisecond); got != 64 {
		t.Errorf("second decrease = %d, want 64", got)
	}
	// 64 * 1.05 = 67.2, rounded up.
	if got := th.Observe(10 * time.Millisecond); got != 68 {
		t.Errorf("recovery = %d, want 68", got)
	}
}

func TestThrottleHoldsBetweenTargetAndStress(t *testing.T) {
	th := newTestThrottle()
	th.Observe(60 * time.Millisecond)
	for i := 0; i < 10; i++ {
		if got := th.Observe(45 * time.Millisecond); got != 80 {
			t.Fatalf("batch moved to %d inside the dead band", got)
		}
	}
}

func TestThrottleCalmAtMaxStays(t *testing.T) {
	th := newTestThrottle()
	if got := th.Observe(time.Millisecond); got != 100 {
		t.Errorf("got %d, want 100", got)
	}
	lo, hi := th.Bounds()
	if lo != 10 || hi != 100 {
		t.Errorf("bounds = %d,%d", lo, hi)
	}
}

func TestNewThrottleNormalizesBounds(t *testing.T) {
	th := NewThrottle(0, -5, time.Second, time.Second, 0.5, 2)
	lo, hi := th.Bounds()
	if lo != 1 || hi != 1 {
		t.Errorf("bounds = %d,%d, want 1,1", lo, hi)
	}
}
