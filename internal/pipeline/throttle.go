package pipeline

import (
	"math"
	"sync"
	"time"
)

// Throttle is the closed-loop batch size controller. Under stress the batch
// shrinks multiplicatively down to a floor; once ticks are back under the
// target it grows multiplicatively back to the configured maximum.
type Throttle struct {
	mu       sync.Mutex
	min, max int
	current  int
	stress   time.Duration
	target   time.Duration
	decrease float64
	recovery float64
}

// NewThrottle returns a throttle starting at max.
func NewThrottle(lo, hi int, stress, target time.Duration, decrease, recovery float64) *Throttle {
	lo = max(lo, 1)
	hi = max(hi, lo)
	return &Throttle{
		min:      lo,
		max:      hi,
		current:  hi,
		stress:   stress,
		target:   target,
		decrease: decrease,
		recovery: recovery,
	}
}

// Observe feeds one tick measurement and returns the new batch size.
func (t *Throttle) Observe(tick time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case tick > t.stress:
		t.current = max(t.min, int(float64(t.current)*t.decrease))
	case tick < t.target && t.current < t.max:
		t.current = min(t.max, int(math.Ceil(float64(t.current)*t.recovery)))
	}
	return t.current
}

// Current returns the batch size in effect.
func (t *Throttle) Current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Bounds returns the floor and ceiling.
func (t *Throttle) Bounds() (lo, hi int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.min, t.max
}

func (t *Throttle) reset(lo, hi int, stress, target time.Duration, decrease, recovery float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.min, t.max, t.current = lo, hi, hi
	t.stress, t.target = stress, target
	t.decrease, t.recovery = decrease, recovery
}
