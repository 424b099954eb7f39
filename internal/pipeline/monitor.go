package pipeline

import (
	"context"
	"time"

	"github.com/go-theft-craft/blast/internal/metrics"
	"github.com/go-theft-craft/blast/internal/world"
)

// tickSyncTimeout bounds the empty sync used to time a tick when the scheduler
// cannot report tick durations itself.
const tickSyncTimeout = time.Second

// monitor samples the host tick every interval and feeds the throttle. It
// picks up interval changes made by Configure; Configure cancels ctx when
// the interval drops to zero.
func (p *Pipeline) monitor(ctx context.Context, interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		tick, ok := p.measureTick(ctx)
		if !ok {
			continue
		}
		metrics.PipelineTickSeconds.Observe(tick.Seconds())

		before := p.throttle.Current()
		after := p.throttle.Observe(tick)
		if after != before {
			metrics.PipelineBatchSize.Set(float64(after))
			p.log.Debug("batch size adjusted", "tick", tick, "from", before, "to", after)
		}

		p.mu.Lock()
		next := p.opts.MonitorInterval
		p.mu.Unlock()
		if next != interval && next > 0 {
			interval = next
			ticker.Reset(interval)
		}
	}
}

func (p *Pipeline) measureTick(ctx context.Context) (time.Duration, bool) {
	if ts, ok := p.sched.(world.TickSource); ok {
		return ts.TickDuration(), true
	}
	pctx, cancel := context.WithTimeout(ctx, tickSyncTimeout)
	defer cancel()
	start := time.Now()
	if err := p.sched.Sync(pctx, func(world.Writer) {}); err != nil {
		if ctx.Err() != nil {
			return 0, false
		}
		// A timing sync that times out is a stressed host.
		return tickSyncTimeout, true
	}
	return time.Since(start), true
}
