package transform

import (
	"sort"
	"strings"

	"github.com/go-theft-craft/blast/pkg/material"
)

// Condition decides whether a rule applies. The concrete variants are
// MaterialSet, Category, PowerThreshold and Combined.
type Condition interface {
	condition()
}

// MaterialSet matches an exact set of materials.
type MaterialSet map[material.Material]struct{}

// Materials builds a MaterialSet.
func Materials(ms ...material.Material) MaterialSet {
	s := make(MaterialSet, len(ms))
	for _, m := range ms {
		s[m] = struct{}{}
	}
	return s
}

// Category matches materials satisfying a named predicate.
type Category struct {
	Name string
	Pred func(material.Material) bool
}

// PowerThreshold matches when intensity lies in [Min, Max] and Inner
// matches. Max of zero means unbounded; a nil Inner always matches.
type PowerThreshold struct {
	Min, Max float64
	Inner    Condition
}

// Op is a boolean combinator.
type Op int

const (
	And Op = iota
	Or
)

func (o Op) String() string {
	if o == Or {
		return "or"
	}
	return "and"
}

// Combined joins conditions with And or Or. An empty And matches
// everything; an empty Or matches nothing.
type Combined struct {
	Op         Op
	Conditions []Condition
}

func (MaterialSet) condition()    {}
func (Category) condition()       {}
func (PowerThreshold) condition() {}
func (Combined) condition()       {}

// AllOf is shorthand for Combined{Op: And}.
func AllOf(cs ...Condition) Combined { return Combined{Op: And, Conditions: cs} }

// AnyOf is shorthand for Combined{Op: Or}.
func AnyOf(cs ...Condition) Combined { return Combined{Op: Or, Conditions: cs} }

// AtLeast wraps inner with a lower power bound.
func AtLeast(min float64, inner Condition) PowerThreshold {
	return PowerThreshold{Min: min, Inner: inner}
}

var categories = map[string]func(material.Material) bool{
	"any":            func(material.Material) bool { return true },
	"air":            material.IsAir,
	"liquid":         material.IsLiquid,
	"leaves":         material.IsLeaves,
	"log":            material.IsLog,
	"tree":           material.IsTreeBlock,
	"plant":          material.IsPlant,
	"solid":          material.IsSolid,
	"indestructible": material.IsIndestructible,
	"ore": func(m material.Material) bool {
		return strings.HasSuffix(string(m), "_ore")
	},
}

// NamedCategory returns the built-in category called name.
func NamedCategory(name string) (Category, bool) {
	pred, ok := categories[name]
	if !ok {
		return Category{}, false
	}
	return Category{Name: name, Pred: pred}, true
}

// CategoryNames lists the built-in category names in sorted order.
func CategoryNames() []string {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mustCategory(name string) Category {
	c, ok := NamedCategory(name)
	if !ok {
		panic("transform: unknown category " + name)
	}
	return c
}

func matches(c Condition, m material.Material, intensity float64) bool {
	switch c := c.(type) {
	case MaterialSet:
		_, ok := c[m]
		return ok
	case Category:
		return c.Pred != nil && c.Pred(m)
	case PowerThreshold:
		if intensity < c.Min {
			return false
		}
		if c.Max > 0 && intensity > c.Max {
			return false
		}
		return c.Inner == nil || matches(c.Inner, m, intensity)
	case Combined:
		if c.Op == Or {
			for _, sub := range c.Conditions {
				if matches(sub, m, intensity) {
					return true
				}
			}
			return false
		}
		for _, sub := range c.Conditions {
			if !matches(sub, m, intensity) {
				return false
			}
		}
		return true
	}
	return false
}
