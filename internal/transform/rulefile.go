package transform

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/go-theft-craft/blast/pkg/material"
)

// RuleFile is the YAML form of a rule set.
type RuleFile struct {
	// IncludeDefaults appends the built-in rules after the file's rules.
	IncludeDefaults bool       `yaml:"include_defaults"`
	Rules           []RuleSpec `yaml:"rules"`
}

// RuleSpec is one rule in a RuleFile.
type RuleSpec struct {
	Name     string        `yaml:"name"`
	Priority int           `yaml:"priority"`
	When     ConditionSpec `yaml:"when"`
	Then     OutcomeSpec   `yaml:"then"`
}

// ConditionSpec sets exactly one of its fields.
type ConditionSpec struct {
	Materials []material.Material `yaml:"materials,omitempty"`
	Category  string              `yaml:"category,omitempty"`
	Power     *PowerSpec          `yaml:"power,omitempty"`
	All       []ConditionSpec     `yaml:"all,omitempty"`
	Any       []ConditionSpec     `yaml:"any,omitempty"`
}

// PowerSpec is the YAML form of PowerThreshold.
type PowerSpec struct {
	Min   float64        `yaml:"min"`
	Max   float64        `yaml:"max,omitempty"`
	Inner *ConditionSpec `yaml:"inner,omitempty"`
}

// OutcomeSpec sets exactly one of its fields.
type OutcomeSpec struct {
	Fixed        material.Material   `yaml:"fixed,omitempty"`
	Random       []material.Material `yaml:"random,omitempty"`
	Palette      *PaletteSpec        `yaml:"palette,omitempty"`
	NoisePalette *PaletteSpec        `yaml:"noise_palette,omitempty"`
	Chance       *ChanceSpec         `yaml:"chance,omitempty"`
	Keep         bool                `yaml:"keep,omitempty"`
}

// PaletteSpec is the YAML form of material.Palette.
type PaletteSpec struct {
	NoiseScale float64     `yaml:"noise_scale,omitempty"`
	Entries    []EntrySpec `yaml:"entries"`
}

// EntrySpec is one weighted palette member.
type EntrySpec struct {
	Material material.Material `yaml:"material"`
	Weight   int               `yaml:"weight"`
}

// ChanceSpec is the YAML form of Chance.
type ChanceSpec struct {
	Probability  float64      `yaml:"probability"`
	ScaleByPower bool         `yaml:"scale_by_power,omitempty"`
	Then         *OutcomeSpec `yaml:"then"`
	Else         *OutcomeSpec `yaml:"else,omitempty"`
}

// ParseRuleFile decodes a YAML rule file. Unknown fields are rejected.
func ParseRuleFile(data []byte) (RuleFile, error) {
	var rf RuleFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil {
		return RuleFile{}, fmt.Errorf("decode rule file: %w", err)
	}
	return rf, nil
}

// LoadFile reads and compiles the rule file at path.
func LoadFile(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	rf, err := ParseRuleFile(data)
	if err != nil {
		return nil, err
	}
	e, err := Compile(rf)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	return e, nil
}

// Compile turns a RuleFile into an Engine.
func Compile(rf RuleFile) (*Engine, error) {
	rules := make([]Rule, 0, len(rf.Rules))
	for i, rs := range rf.Rules {
		when, err := compileCondition(rs.When)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%q) when: %w", i, rs.Name, err)
		}
		then, err := compileOutcome(rs.Then)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%q) then: %w", i, rs.Name, err)
		}
		rules = append(rules, Rule{Name: rs.Name, Priority: rs.Priority, When: when, Then: then})
	}
	if rf.IncludeDefaults {
		rules = append(rules, DefaultRules()...)
	}
	return New(rules...)
}

func compileCondition(cs ConditionSpec) (Condition, error) {
	set := 0
	if len(cs.Materials) > 0 {
		set++
	}
	if cs.Category != "" {
		set++
	}
	if cs.Power != nil {
		set++
	}
	if len(cs.All) > 0 {
		set++
	}
	if len(cs.Any) > 0 {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: condition must set exactly one of materials, category, power, all, any (got %d)", ErrInvalidRule, set)
	}

	switch {
	case len(cs.Materials) > 0:
		return Materials(cs.Materials...), nil
	case cs.Category != "":
		c, ok := NamedCategory(cs.Category)
		if !ok {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidRule, cs.Category)
		}
		return c, nil
	case cs.Power != nil:
		pt := PowerThreshold{Min: cs.Power.Min, Max: cs.Power.Max}
		if cs.Power.Inner != nil {
			inner, err := compileCondition(*cs.Power.Inner)
			if err != nil {
				return nil, err
			}
			pt.Inner = inner
		}
		return pt, nil
	}

	op, subs := And, cs.All
	if len(cs.Any) > 0 {
		op, subs = Or, cs.Any
	}
	combined := Combined{Op: op, Conditions: make([]Condition, 0, len(subs))}
	for _, sub := range subs {
		c, err := compileCondition(sub)
		if err != nil {
			return nil, err
		}
		combined.Conditions = append(combined.Conditions, c)
	}
	return combined, nil
}

func compileOutcome(spec OutcomeSpec) (Outcome, error) {
	set := 0
	if spec.Fixed != "" {
		set++
	}
	if len(spec.Random) > 0 {
		set++
	}
	if spec.Palette != nil {
		set++
	}
	if spec.NoisePalette != nil {
		set++
	}
	if spec.Chance != nil {
		set++
	}
	if spec.Keep {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: outcome must set exactly one of fixed, random, palette, noise_palette, chance, keep (got %d)", ErrInvalidRule, set)
	}

	switch {
	case spec.Fixed != "":
		return Fixed{Material: spec.Fixed}, nil
	case len(spec.Random) > 0:
		return RandomOf{Materials: spec.Random}, nil
	case spec.Palette != nil:
		return PaletteOutcome{Palette: spec.Palette.palette()}, nil
	case spec.NoisePalette != nil:
		return NoisePalette{Palette: spec.NoisePalette.palette()}, nil
	case spec.Keep:
		return Keep{}, nil
	}

	ch := Chance{Probability: spec.Chance.Probability, ScaleByPower: spec.Chance.ScaleByPower}
	if spec.Chance.Then == nil {
		return nil, fmt.Errorf("%w: chance without then", ErrInvalidRule)
	}
	then, err := compileOutcome(*spec.Chance.Then)
	if err != nil {
		return nil, err
	}
	ch.Then = then
	if spec.Chance.Else != nil {
		els, err := compileOutcome(*spec.Chance.Else)
		if err != nil {
			return nil, err
		}
		ch.Else = els
	}
	return ch, nil
}

func (ps *PaletteSpec) palette() material.Palette {
	p := material.Palette{NoiseScale: ps.NoiseScale, Entries: make([]material.Entry, 0, len(ps.Entries))}
	for _, e := range ps.Entries {
		p.Entries = append(p.Entries, material.Entry{Material: e.Material, Weight: e.Weight})
	}
	return p
}
