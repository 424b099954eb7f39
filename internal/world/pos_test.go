package world

import (
	"math"
	"sync"
	"testing"
)

func TestChunkPackRoundTrip(t *testing.T) {
	values := []int{0, 1, -1, 15, -16, 1 << 20, -(1 << 20), math.MaxInt32, math.MinInt32}
	for _, x := range values {
		for _, z := range values {
			p := ChunkPos{X: x, Z: z}
			if got := UnpackChunk(p.Pack()); got != p {
				t.Errorf("UnpackChunk(Pack(%v)) = %v", p, got)
			}
		}
	}
}

func TestChunkPackDistinct(t *testing.T) {
	seen := make(map[uint64]ChunkPos)
	for x := -8; x <= 8; x++ {
		for z := -8; z <= 8; z++ {
			p := ChunkPos{X: x, Z: z}
			k := p.Pack()
			if prev, ok := seen[k]; ok {
				t.Fatalf("Pack(%v) collides with %v", p, prev)
			}
			seen[k] = p
		}
	}
}

func TestBlockPackRoundTrip(t *testing.T) {
	tests := []BlockPos{
		{0, 0, 0},
		{1, -64, -1},
		{-30000000 + 1, 319, 29999999},
		{1<<25 - 1, 2047, -(1 << 25)},
		{-(1 << 25), -2048, 1<<25 - 1},
		{123, 64, -456},
	}
	for _, p := range tests {
		x, y, z := UnpackBlock(p.Pack())
		if (BlockPos{x, y, z}) != p {
			t.Errorf("UnpackBlock(PackBlock(%v)) = (%d,%d,%d)", p, x, y, z)
		}
	}
}

func TestChunkOf(t *testing.T) {
	tests := []struct {
		x, z int
		want ChunkPos
	}{
		{0, 0, ChunkPos{0, 0}},
		{15, 16, ChunkPos{0, 1}},
		{-1, -16, ChunkPos{-1, -1}},
		{-17, 31, ChunkPos{-2, 1}},
	}
	for _, tt := range tests {
		if got := ChunkOf(tt.x, tt.z); got != tt.want {
			t.Errorf("ChunkOf(%d,%d) = %v, want %v", tt.x, tt.z, got, tt.want)
		}
	}
}

func TestPositionSetAddIdempotent(t *testing.T) {
	s := NewPositionSet()
	if !s.Add(1, 2, 3) {
		t.Fatal("first Add returned false")
	}
	if s.Add(1, 2, 3) {
		t.Fatal("second Add returned true")
	}
	if !s.Add(1, 3, 2) {
		t.Fatal("distinct position rejected")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	if !s.Contains(1, 2, 3) || s.Contains(9, 9, 9) {
		t.Error("Contains mismatch")
	}
	s.Remove(1, 2, 3)
	if s.Len() != 1 || s.Contains(1, 2, 3) {
		t.Errorf("after Remove: Len = %d", s.Len())
	}
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("after Clear: Len = %d, want 0", s.Len())
	}
	if !s.Add(1, 3, 2) {
		t.Error("Add after Clear returned false")
	}
}

func TestPositionSetConcurrent(t *testing.T) {
	s := NewPositionSet()
	const workers = 8
	const side = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := 0
			for x := 0; x < side; x++ {
				for y := 0; y < side; y++ {
					for z := 0; z < side; z++ {
						if s.Add(x, y, z) {
							n++
						}
					}
				}
			}
			mu.Lock()
			accepted += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	if accepted != side*side*side {
		t.Errorf("accepted %d adds, want %d", accepted, side*side*side)
	}
	if s.Len() != side*side*side {
		t.Errorf("Len = %d, want %d", s.Len(), side*side*side)
	}
}

func TestPartitionTiles(t *testing.T) {
	tests := []struct {
		bounds Region
		size   int
	}{
		{Region{-20, -20, 20, 20}, 16},
		{Region{0, 0, 15, 15}, 16},
		{Region{-1, 5, 0, 5}, 16},
		{Region{-33, -7, 40, 2}, 8},
	}
	for _, tt := range tests {
		regions := Partition(tt.bounds, tt.size)
		covered := make(map[[2]int]int)
		total := 0
		for _, r := range regions {
			if r.MaxX-r.MinX >= tt.size || r.MaxZ-r.MinZ >= tt.size {
				t.Errorf("region %+v larger than %d", r, tt.size)
			}
			for x := r.MinX; x <= r.MaxX; x++ {
				for z := r.MinZ; z <= r.MaxZ; z++ {
					covered[[2]int{x, z}]++
				}
			}
			total += r.Area()
		}
		if total != tt.bounds.Area() {
			t.Errorf("%+v: regions cover %d columns, want %d", tt.bounds, total, tt.bounds.Area())
		}
		for x := tt.bounds.MinX; x <= tt.bounds.MaxX; x++ {
			for z := tt.bounds.MinZ; z <= tt.bounds.MaxZ; z++ {
				if n := covered[[2]int{x, z}]; n != 1 {
					t.Fatalf("%+v: column (%d,%d) covered %d times", tt.bounds, x, z, n)
				}
			}
		}
	}
}

func TestPartitionEmpty(t *testing.T) {
	if got := Partition(Region{MinX: 5, MaxX: 4}, 16); got != nil {
		t.Errorf("Partition(empty) = %v, want nil", got)
	}
}
