// Package transform maps a block's material, the local explosion intensity
// and its position to a replacement material through a prioritized rule set.
package transform

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-theft-craft/blast/pkg/material"
)

// ErrInvalidRule is returned for rules that cannot be evaluated.
var ErrInvalidRule = errors.New("invalid rule")

// Rule is one prioritized transformation. Higher priorities are tried first.
type Rule struct {
	Name     string
	Priority int
	When     Condition
	Then     Outcome
}

// Engine evaluates rules in descending priority order; ties keep their
// declaration order. An Engine is immutable and safe for concurrent use.
type Engine struct {
	rules []Rule
}

// New validates rules and returns an engine over them.
func New(rules ...Rule) (*Engine, error) {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	for i, r := range sorted {
		if err := validateRule(r); err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i, r.Name, err)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return &Engine{rules: sorted}, nil
}

// Rules returns the rules in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Match returns the first rule matching m at the given intensity.
func (e *Engine) Match(m material.Material, intensity float64) (Rule, bool) {
	intensity = clamp01(intensity)
	for _, r := range e.rules {
		if matches(r.When, m, intensity) {
			return r, true
		}
	}
	return Rule{}, false
}

// Transform returns the replacement for m at intensity (clamped to [0,1])
// and position (x, y, z). When no rule matches, m is returned unchanged.
func (e *Engine) Transform(m material.Material, intensity float64, x, y, z int) material.Material {
	if e == nil {
		return m
	}
	intensity = clamp01(intensity)
	for _, r := range e.rules {
		if matches(r.When, m, intensity) {
			return resolve(r.Then, m, intensity, x, y, z, 0)
		}
	}
	return m
}

func clamp01(v float64) float64 {
	switch {
	case v != v, v < 0: // NaN or negative
		return 0
	case v > 1:
		return 1
	}
	return v
}

func validateRule(r Rule) error {
	if r.When == nil {
		return fmt.Errorf("%w: missing condition", ErrInvalidRule)
	}
	if r.Then == nil {
		return fmt.Errorf("%w: missing outcome", ErrInvalidRule)
	}
	if err := validateCondition(r.When); err != nil {
		return err
	}
	return validateOutcome(r.Then)
}

func validateCondition(c Condition) error {
	switch c := c.(type) {
	case MaterialSet:
		if len(c) == 0 {
			return fmt.Errorf("%w: empty material set", ErrInvalidRule)
		}
	case Category:
		if c.Pred == nil {
			return fmt.Errorf("%w: category %q has no predicate", ErrInvalidRule, c.Name)
		}
	case PowerThreshold:
		if c.Min < 0 || c.Max < 0 || (c.Max > 0 && c.Max < c.Min) {
			return fmt.Errorf("%w: power range [%g, %g]", ErrInvalidRule, c.Min, c.Max)
		}
		if c.Inner != nil {
			return validateCondition(c.Inner)
		}
	case Combined:
		for _, sub := range c.Conditions {
			if sub == nil {
				return fmt.Errorf("%w: nil sub-condition", ErrInvalidRule)
			}
			if err := validateCondition(sub); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown condition %T", ErrInvalidRule, c)
	}
	return nil
}

func validateOutcome(o Outcome) error {
	switch o := o.(type) {
	case Fixed:
		if o.Material == "" {
			return fmt.Errorf("%w: fixed outcome without material", ErrInvalidRule)
		}
	case RandomOf:
		if len(o.Materials) == 0 {
			return fmt.Errorf("%w: random outcome without materials", ErrInvalidRule)
		}
	case PaletteOutcome:
		if err := o.Palette.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRule, err)
		}
	case NoisePalette:
		if err := o.Palette.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRule, err)
		}
	case Chance:
		if o.Probability < 0 || o.Probability > 1 {
			return fmt.Errorf("%w: probability %g outside [0,1]", ErrInvalidRule, o.Probability)
		}
		if o.Then == nil {
			return fmt.Errorf("%w: chance outcome without then branch", ErrInvalidRule)
		}
		if err := validateOutcome(o.Then); err != nil {
			return err
		}
		if o.Else != nil {
			return validateOutcome(o.Else)
		}
	case Keep:
	default:
		return fmt.Errorf("%w: unknown outcome %T", ErrInvalidRule, o)
	}
	return nil
}
