package noise

import (
	"math"
	"sync"
	"testing"
)

func TestSameSeedSameField(t *testing.T) {
	a, b := New(12345), New(12345)
	for i := -200; i < 200; i++ {
		x, y, z := float64(i)*0.17, float64(i)*-0.31, float64(i)*0.05
		if a.Noise2D(x, y) != b.Noise2D(x, y) || a.Noise3D(x, y, z) != b.Noise3D(x, y, z) {
			t.Fatalf("seed 12345 gave two fields at (%g, %g, %g)", x, y, z)
		}
	}
	if a.perm == New(12346).perm {
		t.Error("neighbouring seeds share a permutation")
	}
}

func TestPermutationIsComplete(t *testing.T) {
	s := New(-7)
	var seen [256]bool
	for _, v := range s.perm[:256] {
		seen[v] = true
	}
	for i, ok := range seen {
		if !ok {
			t.Fatalf("value %d missing from the permutation", i)
		}
	}
	if [256]uint8(s.perm[:256]) != [256]uint8(s.perm[256:]) {
		t.Error("upper half does not repeat the permutation")
	}
}

func TestNoiseStaysInRange(t *testing.T) {
	s := New(42)
	for i := range 20000 {
		x := float64(i)*0.37 - 500
		y := float64(i)*0.53 - 500
		z := float64(i)*0.71 - 500
		if v := s.Noise3D(x, y, z); v < -1 || v > 1 {
			t.Fatalf("Noise3D(%g, %g, %g) = %g", x, y, z, v)
		}
		if v := s.Noise2D(x, z); v < -1 || v > 1 {
			t.Fatalf("Noise2D(%g, %g) = %g", x, z, v)
		}
	}
}

func TestLatticePointsAreZero(t *testing.T) {
	s := New(3)
	for i := -5; i <= 5; i++ {
		if v := s.Noise2D(float64(i), float64(-i)); math.Abs(v) > 1e-9 {
			t.Errorf("Noise2D on lattice (%d, %d) = %g", i, -i, v)
		}
	}
}

func TestOctavesAreContinuous(t *testing.T) {
	s := New(456)
	prev := s.Octave3D(0, 1, 0, 4, 0.5)
	for i := 1; i < 1000; i++ {
		cur := s.Octave3D(float64(i)*0.01, 1, 0, 4, 0.5)
		if d := math.Abs(cur - prev); d > 0.1 {
			t.Fatalf("Octave3D jumped %g at step %d", d, i)
		}
		prev = cur
	}
	if v := s.Octave2D(1.5, 2.5, 0, 0.5); v != 0 {
		t.Errorf("zero octaves = %g, want 0", v)
	}
	if one, base := s.Octave2D(1.5, 2.5, 1, 0.5), s.Noise2D(1.5, 2.5); one != base {
		t.Errorf("one octave = %g, want Noise2D %g", one, base)
	}
}

func TestBlockSamplingMatchesField(t *testing.T) {
	y := 12
	for x := -8; x <= 8; x++ {
		for z := -8; z <= 8; z++ {
			want := Coherent.Noise3D(float64(x)*0.2, float64(y)*0.2, float64(z)*0.2)
			if got := Coherent.At(x, y, z, 0.2); got != want {
				t.Fatalf("At(%d, 12, %d) = %g, want %g", x, z, got, want)
			}
			if u := Coherent.UnitAt(x, y, z, 0.2); u < 0 || u > 1 || math.Abs(u-(want+1)/2) > 1e-12 {
				t.Fatalf("UnitAt(%d, 12, %d) = %g for field %g", x, z, u, want)
			}
		}
	}
}

func TestConcurrentSamplingAgrees(t *testing.T) {
	want := make([]float64, 512)
	for i := range want {
		want[i] = Coherent.UnitAt(i, i%7, -i, 0.3)
	}
	var wg sync.WaitGroup
	errs := make(chan int, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range want {
				if Coherent.UnitAt(i, i%7, -i, 0.3) != want[i] {
					errs <- i
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for i := range errs {
		t.Errorf("concurrent sample %d disagreed", i)
	}
}

func TestFloat3Deterministic(t *testing.T) {
	for i := -50; i < 50; i++ {
		a := Float3(i, i*3, -i, 7)
		if b := Float3(i, i*3, -i, 7); a != b {
			t.Fatalf("Float3 not deterministic at %d: %g != %g", i, a, b)
		}
		if a < 0 || a >= 1 {
			t.Fatalf("Float3 = %g, out of [0,1)", a)
		}
	}
	if Float3(1, 2, 3, 0) == Float3(1, 2, 3, 1) {
		t.Error("salt should change the hash")
	}
	if Hash3(1, 2, 3, 0) == Hash3(3, 2, 1, 0) {
		t.Error("swapped coordinates collide")
	}
}
