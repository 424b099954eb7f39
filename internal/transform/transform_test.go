package transform

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-theft-craft/blast/pkg/material"
)

func TestTransformIdentityFallback(t *testing.T) {
	e, err := New(Rule{Name: "only-sand", Priority: 1, When: Materials(material.Sand), Then: Fixed{material.Glass}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, m := range []material.Material{material.Stone, material.OakLog, "modded_block", material.Air} {
		if got := e.Transform(m, 0.7, 1, 2, 3); got != m {
			t.Errorf("Transform(%s) = %s, want unchanged", m, got)
		}
	}

	empty, err := New()
	if err != nil {
		t.Fatalf("New(): %v", err)
	}
	if got := empty.Transform(material.Dirt, 1, 0, 0, 0); got != material.Dirt {
		t.Errorf("empty engine Transform = %s, want dirt", got)
	}
}

func TestTransformPriorityOrder(t *testing.T) {
	low := Rule{Name: "low", Priority: 10, When: Materials(material.Stone), Then: Fixed{material.Gravel}}
	high := Rule{Name: "high", Priority: 20, When: mustCategory("solid"), Then: Fixed{material.Cobblestone}}

	for _, order := range [][]Rule{{low, high}, {high, low}} {
		e, err := New(order...)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if got := e.Transform(material.Stone, 0.5, 0, 0, 0); got != material.Cobblestone {
			t.Errorf("order %s,%s: got %s, want cobblestone", order[0].Name, order[1].Name, got)
		}
	}
}

func TestTransformTiesKeepDeclarationOrder(t *testing.T) {
	first := Rule{Name: "first", Priority: 5, When: Materials(material.Stone), Then: Fixed{material.Gravel}}
	second := Rule{Name: "second", Priority: 5, When: Materials(material.Stone), Then: Fixed{material.Sand}}
	e, err := New(first, second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := e.Transform(material.Stone, 1, 0, 0, 0); got != material.Gravel {
		t.Errorf("got %s, want gravel from first declared rule", got)
	}
	r, ok := e.Match(material.Stone, 1)
	if !ok || r.Name != "first" {
		t.Errorf("Match = %q, %v", r.Name, ok)
	}
}

func TestPowerThreshold(t *testing.T) {
	e, err := New(
		Rule{Name: "strong", Priority: 2, When: PowerThreshold{Min: 0.5, Max: 0.9, Inner: Materials(material.Stone)}, Then: Fixed{material.Air}},
		Rule{Name: "any-strong", Priority: 1, When: PowerThreshold{Min: 0.95}, Then: Fixed{material.Gravel}},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tests := []struct {
		m         material.Material
		intensity float64
		want      material.Material
	}{
		{material.Stone, 0.4, material.Stone},
		{material.Stone, 0.5, material.Air},
		{material.Stone, 0.9, material.Air},
		{material.Stone, 0.92, material.Stone},
		{material.Stone, 3, material.Gravel}, // clamped to 1
		{material.Dirt, 0.7, material.Dirt},
		{material.Dirt, 1, material.Gravel},
	}
	for _, tt := range tests {
		if got := e.Transform(tt.m, tt.intensity, 0, 0, 0); got != tt.want {
			t.Errorf("Transform(%s, %g) = %s, want %s", tt.m, tt.intensity, got, tt.want)
		}
	}
}

func TestCombinedConditions(t *testing.T) {
	and := AllOf(mustCategory("solid"), Materials(material.Stone, material.Dirt))
	or := AnyOf(Materials(material.Sand), mustCategory("leaves"))

	tests := []struct {
		c    Condition
		m    material.Material
		want bool
	}{
		{and, material.Stone, true},
		{and, material.Sand, false},
		{and, material.Water, false},
		{or, material.Sand, true},
		{or, material.OakLeaves, true},
		{or, material.Stone, false},
		{AllOf(), material.Stone, true},
		{AnyOf(), material.Stone, false},
	}
	for i, tt := range tests {
		if got := matches(tt.c, tt.m, 1); got != tt.want {
			t.Errorf("case %d: matches(%s) = %v, want %v", i, tt.m, got, tt.want)
		}
	}
}

func TestOutcomesDeterministic(t *testing.T) {
	pal := material.NewPalette(0.2,
		material.Entry{Material: material.Cobblestone, Weight: 3},
		material.Entry{Material: material.Gravel, Weight: 1},
	)
	outcomes := []Outcome{
		RandomOf{Materials: []material.Material{material.Stone, material.Dirt, material.Sand}},
		PaletteOutcome{Palette: pal},
		NoisePalette{Palette: pal},
		Chance{Probability: 0.5, Then: Fixed{material.Air}, Else: Chance{Probability: 0.5, Then: Fixed{material.Glass}}},
	}
	for i, o := range outcomes {
		e, err := New(Rule{Name: "r", Priority: 1, When: mustCategory("any"), Then: o})
		if err != nil {
			t.Fatalf("outcome %d: %v", i, err)
		}
		for x := -10; x <= 10; x++ {
			for z := -10; z <= 10; z++ {
				a := e.Transform(material.Stone, 0.5, x, 60, z)
				b := e.Transform(material.Stone, 0.5, x, 60, z)
				if a != b {
					t.Fatalf("outcome %d at (%d,60,%d): %s then %s", i, x, z, a, b)
				}
			}
		}
	}
}

func TestChanceScaleByPower(t *testing.T) {
	e, err := New(Rule{Name: "r", Priority: 1, When: Materials(material.Stone),
		Then: Chance{Probability: 1, ScaleByPower: true, Then: Fixed{material.Air}}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for x := 0; x < 50; x++ {
		if got := e.Transform(material.Stone, 0, x, 0, 0); got != material.Stone {
			t.Fatalf("zero intensity changed block at x=%d to %s", x, got)
		}
		if got := e.Transform(material.Stone, 1, x, 0, 0); got != material.Air {
			t.Fatalf("full intensity kept block at x=%d as %s", x, got)
		}
	}
}

func TestNewRejectsInvalidRules(t *testing.T) {
	bad := []Rule{
		{Name: "no-condition", Then: Keep{}},
		{Name: "no-outcome", When: Materials(material.Stone)},
		{Name: "empty-set", When: MaterialSet{}, Then: Keep{}},
		{Name: "bad-power", When: PowerThreshold{Min: 0.8, Max: 0.2}, Then: Keep{}},
		{Name: "bad-chance", When: Materials(material.Stone), Then: Chance{Probability: 2, Then: Keep{}}},
		{Name: "bad-palette", When: Materials(material.Stone), Then: NoisePalette{Palette: material.NewPalette(0, material.Entry{Material: material.Stone})}},
		{Name: "empty-random", When: Materials(material.Stone), Then: RandomOf{}},
	}
	for _, r := range bad {
		if _, err := New(r); !errors.Is(err, ErrInvalidRule) {
			t.Errorf("New(%s) error = %v, want ErrInvalidRule", r.Name, err)
		}
	}
}

func TestDefaultRules(t *testing.T) {
	e := Default()
	tests := []struct {
		m         material.Material
		intensity float64
		want      material.Material
	}{
		{material.Bedrock, 1, material.Bedrock},
		{material.Air, 1, material.Air},
		{material.Water, 1, material.Water},
		{material.OakLeaves, 0.1, material.Air},
		{material.ShortGrass, 0.1, material.Air},
		{material.SpruceLog, 0.8, material.Air},
		{material.Obsidian, 0.5, material.Obsidian},
	}
	for _, tt := range tests {
		if got := e.Transform(tt.m, tt.intensity, 4, 64, 4); got != tt.want {
			t.Errorf("Transform(%s, %g) = %s, want %s", tt.m, tt.intensity, got, tt.want)
		}
	}

	grass := e.Transform(material.GrassBlock, 0.5, 0, 64, 0)
	switch grass {
	case material.CoarseDirt, material.Dirt, material.RootedDirt:
	default:
		t.Errorf("scorched grass = %s, want a dirt variant", grass)
	}

	rules := e.Rules()
	for i := 1; i < len(rules); i++ {
		if rules[i-1].Priority < rules[i].Priority {
			t.Fatalf("rules not sorted: %s(%d) before %s(%d)", rules[i-1].Name, rules[i-1].Priority, rules[i].Name, rules[i].Priority)
		}
	}
}

const sampleRules = `
include_defaults: true
rules:
  - name: glassify
    priority: 2000
    when:
      power:
        min: 0.5
        inner:
          any:
            - materials: [sand, red_sand]
            - category: plant
    then:
      chance:
        probability: 1
        then:
          noise_palette:
            noise_scale: 0.3
            entries:
              - {material: glass, weight: 2}
              - {material: tinted_glass, weight: 1}
`

func TestCompileRuleFile(t *testing.T) {
	rf, err := ParseRuleFile([]byte(sampleRules))
	if err != nil {
		t.Fatalf("ParseRuleFile: %v", err)
	}
	e, err := Compile(rf)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if n := len(e.Rules()); n != len(DefaultRules())+1 {
		t.Errorf("rules = %d, want %d", n, len(DefaultRules())+1)
	}
	got := e.Transform(material.Sand, 0.9, 1, 1, 1)
	if got != material.Glass && got != "tinted_glass" {
		t.Errorf("sand at 0.9 = %s, want glass variant", got)
	}
	// Weak blasts fall through to the defaults.
	if got := e.Transform(material.ShortGrass, 0.2, 1, 1, 1); got != material.Air {
		t.Errorf("grass at 0.2 = %s, want air", got)
	}
}

func TestCompileRejectsAmbiguousSpecs(t *testing.T) {
	tests := []string{
		"rules:\n  - name: two\n    when: {materials: [stone], category: solid}\n    then: {keep: true}\n",
		"rules:\n  - name: none\n    when: {}\n    then: {keep: true}\n",
		"rules:\n  - name: two-out\n    when: {category: solid}\n    then: {keep: true, fixed: air}\n",
		"rules:\n  - name: unknown-cat\n    when: {category: spicy}\n    then: {keep: true}\n",
	}
	for _, src := range tests {
		rf, err := ParseRuleFile([]byte(src))
		if err != nil {
			t.Fatalf("ParseRuleFile(%q): %v", src, err)
		}
		if _, err := Compile(rf); !errors.Is(err, ErrInvalidRule) {
			t.Errorf("Compile(%q) error = %v, want ErrInvalidRule", src, err)
		}
	}
	if _, err := ParseRuleFile([]byte("rulez: []\n")); err == nil {
		t.Error("unknown field accepted")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(sampleRules), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if r, ok := e.Match(material.Sand, 0.6); !ok || r.Name != "glassify" {
		t.Errorf("Match(sand) = %q, %v", r.Name, ok)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}
