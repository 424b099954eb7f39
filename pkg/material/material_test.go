package material

import "testing"

func TestCategories(t *testing.T) {
	tests := []struct {
		m                               Material
		air, liquid, leaves, log, solid bool
	}{
		{Air, true, false, false, false, false},
		{CaveAir, true, false, false, false, false},
		{Water, false, true, false, false, false},
		{OakLeaves, false, false, true, false, true},
		{SpruceLog, false, false, false, true, true},
		{"stripped_birch_wood", false, false, false, true, true},
		{"crimson_stem", false, false, false, true, true},
		{ShortGrass, false, false, false, false, false},
		{Stone, false, false, false, false, true},
	}

	for _, tt := range tests {
		if got := IsAir(tt.m); got != tt.air {
			t.Errorf("IsAir(%s) = %v, want %v", tt.m, got, tt.air)
		}
		if got := IsLiquid(tt.m); got != tt.liquid {
			t.Errorf("IsLiquid(%s) = %v, want %v", tt.m, got, tt.liquid)
		}
		if got := IsLeaves(tt.m); got != tt.leaves {
			t.Errorf("IsLeaves(%s) = %v, want %v", tt.m, got, tt.leaves)
		}
		if got := IsLog(tt.m); got != tt.log {
			t.Errorf("IsLog(%s) = %v, want %v", tt.m, got, tt.log)
		}
		if got := IsSolid(tt.m); got != tt.solid {
			t.Errorf("IsSolid(%s) = %v, want %v", tt.m, got, tt.solid)
		}
	}
}

func TestWoodFamily(t *testing.T) {
	tests := map[Material]string{
		OakLog:                 "oak",
		DarkOakLog:             "dark_oak",
		"stripped_spruce_wood": "spruce",
		BirchLeaves:            "birch",
		Stone:                  "",
	}
	for m, want := range tests {
		if got := WoodFamily(m); got != want {
			t.Errorf("WoodFamily(%s) = %q, want %q", m, got, want)
		}
	}
	if got := CharredWood("warped"); got != "stripped_warped_stem" {
		t.Errorf("CharredWood(warped) = %s", got)
	}
	if got := CharredWood(""); got != CoalBlock {
		t.Errorf("CharredWood(\"\") = %s, want %s", got, CoalBlock)
	}
}

func TestCopyStateIntersection(t *testing.T) {
	reg := DefaultRegistry{}
	stairs := Block{
		Material: "oak_stairs",
		State: State{
			Set:         PropFacing | PropHalf | PropWaterlogged,
			Facing:      West,
			Half:        Top,
			Waterlogged: true,
		},
	}

	slab := CopyState(stairs, "cobblestone_slab", reg)
	if slab.State.Set != PropHalf|PropWaterlogged {
		t.Fatalf("slab mask = %b, want half|waterlogged", slab.State.Set)
	}
	if slab.State.Half != Top || !slab.State.Waterlogged {
		t.Errorf("slab state = %+v, want top waterlogged", slab.State)
	}
	if slab.State.Facing != North {
		t.Errorf("facing copied onto slab: %v", slab.State.Facing)
	}

	stone := CopyState(stairs, Stone, reg)
	if stone != Of(Stone) {
		t.Errorf("CopyState to stone = %+v, want bare stone", stone)
	}
}

func TestCopyStateClampsAge(t *testing.T) {
	fire := Block{Material: Fire, State: State{Set: PropAge, Age: 15}}
	wheat := CopyState(fire, Wheat, DefaultRegistry{})
	if wheat.State.Age != 7 {
		t.Errorf("age = %d, want 7", wheat.State.Age)
	}
}

func TestCopyStateAxis(t *testing.T) {
	log := Block{Material: OakLog, State: State{Set: PropAxis, Axis: AxisX}}
	got := CopyState(log, "stripped_dark_oak_log", DefaultRegistry{})
	if got.State.Axis != AxisX || !got.State.Set.Has(PropAxis) {
		t.Errorf("axis not preserved: %+v", got.State)
	}
}

func TestPaletteValidate(t *testing.T) {
	if err := NewPalette(0.1, Entry{Stone, 1}, Entry{Gravel, 3}).Validate(); err != nil {
		t.Fatalf("valid palette rejected: %v", err)
	}
	if err := NewPalette(0.1, Entry{Stone, 0}).Validate(); err == nil {
		t.Error("zero weight accepted")
	}
	if err := (Palette{}).Validate(); err == nil {
		t.Error("empty palette accepted")
	}
}

func TestPalettePickWeights(t *testing.T) {
	p := NewPalette(0, Entry{Stone, 1}, Entry{Gravel, 3})
	counts := map[Material]int{}
	for i := 0; i < 400; i++ {
		counts[p.Pick(float64(i)/400)]++
	}
	if counts[Stone] != 100 || counts[Gravel] != 300 {
		t.Errorf("counts = %v, want stone=100 gravel=300", counts)
	}
	if got := p.Pick(1); got != Gravel {
		t.Errorf("Pick(1) = %s, want last entry", got)
	}
}

func TestPaletteWithNoiseDeterministic(t *testing.T) {
	p := NewPalette(0.2, Entry{CoarseDirt, 2}, Entry{Gravel, 1}, Entry{Blackstone, 1})
	for x := -20; x < 20; x++ {
		for z := -20; z < 20; z++ {
			a := p.WithNoise(x, 64, z)
			b := p.WithNoise(x, 64, z)
			if a != b {
				t.Fatalf("WithNoise(%d,64,%d) = %s then %s", x, z, a, b)
			}
			if c := p.At(x, 64, z); c != p.At(x, 64, z) {
				t.Fatalf("At(%d,64,%d) not deterministic", x, z)
			}
		}
	}
}
