package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-theft-craft/blast/internal/cache"
	"github.com/go-theft-craft/blast/internal/pipeline"
	"github.com/go-theft-craft/blast/internal/world"
	"github.com/go-theft-craft/blast/pkg/material"
	"github.com/go-theft-craft/blast/pkg/world/gen"
)

func startMainThread(t *testing.T, w *World) *MainThread {
	t.Helper()
	m := NewMainThread(w, time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return m
}

func TestSyncRunsOnTick(t *testing.T) {
	w := NewWorld(gen.NewFlatGenerator(0))
	m := startMainThread(t, w)

	err := m.Sync(context.Background(), func(wr world.Writer) {
		if err := wr.SetBlock(1, 20, 1, material.Of(material.Glass), false); err != nil {
			t.Errorf("SetBlock: %v", err)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := w.BlockAt(1, 20, 1).Material; got != material.Glass {
		t.Errorf("block = %s, want glass", got)
	}
	if m.Ticks() == 0 {
		t.Error("no tick recorded")
	}
}

func TestSyncConcurrentCallersSingleWriter(t *testing.T) {
	w := NewWorld(gen.NewFlatGenerator(0))
	m := startMainThread(t, w)

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.Sync(context.Background(), func(wr world.Writer) {
				wr.SetBlock(i, 30, 0, material.Of(material.Stone), false)
			})
			if err != nil {
				t.Errorf("Sync %d: %v", i, err)
			}
		}()
	}
	wg.Wait()
	if got := m.MaxConcurrentWriters(); got != 1 {
		t.Errorf("max concurrent writers = %d, want 1", got)
	}
	if got := w.Overrides(); got != 32 {
		t.Errorf("overrides = %d, want 32", got)
	}
}

func TestSyncAbandonedOnContext(t *testing.T) {
	w := NewWorld(gen.NewFlatGenerator(0))
	m := NewMainThread(w, time.Hour, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := m.Sync(ctx, func(world.Writer) {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Sync = %v, want deadline exceeded", err)
	}

	m.Stop()
	if err := m.Sync(context.Background(), func(world.Writer) {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Sync after Stop = %v, want ErrStopped", err)
	}
}

func TestSyncCancelledWhileRunningReportsWrite(t *testing.T) {
	w := NewWorld(gen.NewFlatGenerator(0))
	m := startMainThread(t, w)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		errc <- m.Sync(ctx, func(wr world.Writer) {
			close(started)
			<-release
			_ = wr.SetBlock(2, 20, 2, material.Of(material.Glass), false)
		})
	}()

	<-started
	cancel()
	time.Sleep(5 * time.Millisecond)
	close(release)
	if err := <-errc; err != nil {
		t.Fatalf("Sync = %v, want nil for a job that ran", err)
	}
	if got := w.BlockAt(2, 20, 2).Material; got != material.Glass {
		t.Errorf("block = %s, want glass", got)
	}
}

func TestTickDurationReflectsLoad(t *testing.T) {
	w := NewWorld(gen.NewFlatGenerator(0))
	m := startMainThread(t, w)
	m.SetLoad(5 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for m.TickDuration() < 3*time.Millisecond && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := m.TickDuration(); got < 3*time.Millisecond {
		t.Errorf("tick duration = %s, want at least 3ms", got)
	}
}

// TestEndToEndTenThousandAir drives the pipeline through the snapshot cache
// and the main thread, then checks every position on the world itself.
func TestEndToEndTenThousandAir(t *testing.T) {
	w := NewWorld(gen.NewFlatGenerator(0))
	m := startMainThread(t, w)

	c, err := cache.New(w, cache.DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	opts := pipeline.DefaultOptions()
	opts.MonitorInterval = 10 * time.Millisecond
	p, err := pipeline.New(m, c, nil, opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	p.Start(ctx)
	defer p.Close()

	// Fill the cube with stone first so the air writes are real changes.
	n := 0
	var positions []world.BlockPos
	for x := 0; x < 50 && n < 10000; x++ {
		for y := 10; y < 60 && n < 10000; y++ {
			for z := 0; z < 50 && n < 10000; z++ {
				positions = append(positions, world.BlockPos{X: x, Y: y, Z: z})
				n++
			}
		}
	}
	err = m.Sync(ctx, func(wr world.Writer) {
		for _, pos := range positions {
			wr.SetBlock(pos.X, pos.Y, pos.Z, material.Of(material.Stone), false)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, pos := range positions {
		ch := pipeline.Change{X: pos.X, Y: pos.Y, Z: pos.Z, Material: material.Air, CopyState: true}
		if err := p.Submit(ctx, ch); err != nil {
			t.Fatalf("Submit %v: %v", pos, err)
		}
	}
	if err := p.Drain(ctx); err != nil {
		t.Fatal(err)
	}

	for _, pos := range positions {
		if got := world.MaterialAt(w, pos.X, pos.Y, pos.Z); got != material.Air {
			t.Fatalf("%v = %s, want air", pos, got)
		}
	}
	if s := p.Stats(); s.Committed != 10000 {
		t.Errorf("committed = %d, want 10000", s.Committed)
	}
	if got := m.MaxConcurrentWriters(); got != 1 {
		t.Errorf("max concurrent writers = %d, want 1", got)
	}
	if dirty := p.DirtyChunks(); len(dirty) != 4 {
		t.Errorf("dirty chunks = %d, want 4: %s", len(dirty), fmt.Sprint(dirty))
	}
}
