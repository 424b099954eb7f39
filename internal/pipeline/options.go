package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned when options fail validation.
var ErrInvalidConfig = errors.New("invalid pipeline config")

// Options tunes a Pipeline.
type Options struct {
	// QueueSize is the capacity of the submission queue. Fixed at New.
	QueueSize int
	// Workers is the number of preparation workers.
	Workers int
	// BatchSize is the maximum number of changes per host sync.
	BatchSize int
	// MinBatchSize is the floor the throttle may shrink the batch to.
	MinBatchSize int
	// BatchPause is the pacing delay between two host syncs.
	BatchPause time.Duration

	// MonitorInterval is how often the throttle samples the host tick.
	// Zero disables the monitor.
	MonitorInterval time.Duration
	StressThreshold time.Duration
	TargetTick      time.Duration
	DecreaseFactor  float64
	RecoveryFactor  float64
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		QueueSize:       4096,
		Workers:         4,
		BatchSize:       512,
		MinBatchSize:    32,
		BatchPause:      time.Millisecond,
		MonitorInterval: 3 * time.Second,
		StressThreshold: 50 * time.Millisecond,
		TargetTick:      40 * time.Millisecond,
		DecreaseFactor:  0.8,
		RecoveryFactor:  1.05,
	}
}

// Validate reports the first invalid field.
func (o Options) Validate() error {
	switch {
	case o.QueueSize < 1:
		return fmt.Errorf("%w: queue size %d", ErrInvalidConfig, o.QueueSize)
	case o.Workers < 1:
		return fmt.Errorf("%w: worker count %d", ErrInvalidConfig, o.Workers)
	case o.BatchSize < 1:
		return fmt.Errorf("%w: batch size %d", ErrInvalidConfig, o.BatchSize)
	case o.MinBatchSize < 1 || o.MinBatchSize > o.BatchSize:
		return fmt.Errorf("%w: min batch size %d with batch size %d", ErrInvalidConfig, o.MinBatchSize, o.BatchSize)
	case o.BatchPause < 0:
		return fmt.Errorf("%w: batch pause %s", ErrInvalidConfig, o.BatchPause)
	case o.MonitorInterval < 0:
		return fmt.Errorf("%w: monitor interval %s", ErrInvalidConfig, o.MonitorInterval)
	case o.TargetTick > o.StressThreshold:
		return fmt.Errorf("%w: target tick %s above stress threshold %s", ErrInvalidConfig, o.TargetTick, o.StressThreshold)
	case o.DecreaseFactor <= 0 || o.DecreaseFactor >= 1:
		return fmt.Errorf("%w: decrease factor %g", ErrInvalidConfig, o.DecreaseFactor)
	case o.RecoveryFactor <= 1:
		return fmt.Errorf("%w: recovery factor %g", ErrInvalidConfig, o.RecoveryFactor)
	}
	return nil
}

// Option changes one setting in Configure.
type Option func(*Options)

// WithBatchSize sets the maximum batch size. The throttle restarts from it.
func WithBatchSize(n int) Option { return func(o *Options) { o.BatchSize = n } }

// WithMinBatchSize sets the throttle floor.
func WithMinBatchSize(n int) Option { return func(o *Options) { o.MinBatchSize = n } }

// WithWorkers resizes the worker pool.
func WithWorkers(n int) Option { return func(o *Options) { o.Workers = n } }

// WithBatchPause sets the pacing delay between syncs.
func WithBatchPause(d time.Duration) Option { return func(o *Options) { o.BatchPause = d } }

// WithMonitor sets the throttle sampling interval and tick thresholds.
func WithMonitor(interval, stress, target time.Duration) Option {
	return func(o *Options) {
		o.MonitorInterval = interval
		o.StressThreshold = stress
		o.TargetTick = target
	}
}

// WithFactors sets the multiplicative decrease and recovery factors.
func WithFactors(decrease, recovery float64) Option {
	return func(o *Options) {
		o.DecreaseFactor = decrease
		o.RecoveryFactor = recovery
	}
}
