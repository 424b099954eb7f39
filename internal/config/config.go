package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-theft-craft/blast/internal/cache"
	"github.com/go-theft-craft/blast/internal/pipeline"
	"github.com/go-theft-craft/blast/internal/shockwave"
	"github.com/go-theft-craft/blast/internal/tree"
)

// Config holds the engine configuration.
type Config struct {
	Cache     CacheConfig     `yaml:"cache"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Shockwave ShockwaveConfig `yaml:"shockwave"`
	Crater    CraterConfig    `yaml:"crater"`
	Tree      TreeConfig      `yaml:"tree"`
	Rules     RulesConfig     `yaml:"rules"`
	Journal   JournalConfig   `yaml:"journal"`
	Log       LogConfig       `yaml:"log"`
	World     WorldConfig     `yaml:"world"`
}

type CacheConfig struct {
	LocalCapacity int           `yaml:"local_capacity"`
	SharedBudget  int64         `yaml:"shared_budget"` // bytes of compressed snapshots
	MaxFetches    int64         `yaml:"max_fetches"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	PreloadRate   float64       `yaml:"preload_rate"`
}

type PipelineConfig struct {
	QueueSize       int           `yaml:"queue_size"`
	Workers         int           `yaml:"workers"`
	BatchSize       int           `yaml:"batch_size"`
	MinBatchSize    int           `yaml:"min_batch_size"`
	BatchPause      time.Duration `yaml:"batch_pause"`
	MonitorInterval time.Duration `yaml:"monitor_interval"`
	StressThreshold time.Duration `yaml:"stress_threshold"`
	TargetTick      time.Duration `yaml:"target_tick"`
	DecreaseFactor  float64       `yaml:"decrease_factor"`
	RecoveryFactor  float64       `yaml:"recovery_factor"`
}

type ShockwaveConfig struct {
	MinPower         float64 `yaml:"min_power"`
	MaxPower         float64 `yaml:"max_power"`
	MaxHeight        int     `yaml:"max_height"`
	WallDepth        int     `yaml:"wall_depth"`
	PenetrationScale float64 `yaml:"penetration_scale"`
	GapSearch        int     `yaml:"gap_search"`
	GapCost          float64 `yaml:"gap_cost"`
	Workers          int     `yaml:"workers"`
	QueueSize        int     `yaml:"queue_size"`
}

type CraterConfig struct {
	RimPower   float64  `yaml:"rim_power"`
	Biome      string   `yaml:"biome"`
	Scorch     []string `yaml:"scorch"`
	RegionSize int      `yaml:"region_size"`
	Workers    int      `yaml:"workers"`
}

type TreeConfig struct {
	BaseSearchDepth  int     `yaml:"base_search_depth"`
	DestroyThreshold float64 `yaml:"destroy_threshold"`
	MaxDisplacement  int     `yaml:"max_displacement"`
	Lean             float64 `yaml:"lean"`
}

// RulesConfig selects the transformation rules. Source, when set, is a
// go-getter URL fetched into File before loading.
type RulesConfig struct {
	File   string `yaml:"file"`
	Source string `yaml:"source"`
}

// JournalConfig enables the run journal when Path is set.
type JournalConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// WorldConfig only applies to the in-memory reference host.
type WorldConfig struct {
	Generator string `yaml:"generator"` // "default" or "flat"
	Seed      int64  `yaml:"seed"`
	Radius    int    `yaml:"radius"` // world boundary in chunks (0 = infinite)
}

// Default returns a Config with the tuned defaults.
func Default() *Config {
	co := cache.DefaultOptions()
	po := pipeline.DefaultOptions()
	so := shockwave.DefaultParams()
	to := tree.DefaultOptions()
	return &Config{
		Cache: CacheConfig{
			LocalCapacity: co.LocalCapacity,
			SharedBudget:  co.SharedBudget,
			MaxFetches:    co.MaxFetches,
			FetchTimeout:  co.FetchTimeout,
			PreloadRate:   co.PreloadRate,
		},
		Pipeline: PipelineConfig{
			QueueSize:       po.QueueSize,
			Workers:         po.Workers,
			BatchSize:       po.BatchSize,
			MinBatchSize:    po.MinBatchSize,
			BatchPause:      po.BatchPause,
			MonitorInterval: po.MonitorInterval,
			StressThreshold: po.StressThreshold,
			TargetTick:      po.TargetTick,
			DecreaseFactor:  po.DecreaseFactor,
			RecoveryFactor:  po.RecoveryFactor,
		},
		Shockwave: ShockwaveConfig{
			MinPower:         0.1,
			MaxPower:         so.MaxPower,
			MaxHeight:        so.MaxHeight,
			WallDepth:        so.WallDepth,
			PenetrationScale: so.PenetrationScale,
			GapSearch:        so.GapSearch,
			GapCost:          so.GapCost,
			Workers:          so.Workers,
			QueueSize:        so.QueueSize,
		},
		Crater: CraterConfig{
			RimPower:   0.5,
			Biome:      "",
			RegionSize: 16,
			Workers:    4,
		},
		Tree: TreeConfig{
			BaseSearchDepth:  to.BaseSearchDepth,
			DestroyThreshold: to.DestroyThreshold,
			MaxDisplacement:  to.MaxDisplacement,
			Lean:             to.Lean,
		},
		Log: LogConfig{Level: "info"},
		World: WorldConfig{
			Generator: "default",
			Radius:    8,
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid section.
func (c *Config) Validate() error {
	if err := c.PipelineOptions().Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	s := c.Shockwave
	switch {
	case s.MinPower < 0 || s.MaxPower < s.MinPower:
		return fmt.Errorf("shockwave: power range [%g, %g] is invalid", s.MinPower, s.MaxPower)
	case s.GapCost < 0 || s.GapCost >= 1:
		return fmt.Errorf("shockwave: gap cost %g outside [0, 1)", s.GapCost)
	}
	if c.Crater.RimPower < 0 {
		return fmt.Errorf("crater: rim power %g is negative", c.Crater.RimPower)
	}
	if t := c.Tree.DestroyThreshold; t < 0 || t > 1 {
		return fmt.Errorf("tree: destroy threshold %g outside [0, 1]", t)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.World.Generator {
	case "", "default", "flat":
	default:
		return fmt.Errorf("world: unknown generator %q", c.World.Generator)
	}
	return nil
}

// CacheOptions converts the cache section.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		LocalCapacity: c.Cache.LocalCapacity,
		SharedBudget:  c.Cache.SharedBudget,
		MaxFetches:    c.Cache.MaxFetches,
		FetchTimeout:  c.Cache.FetchTimeout,
		PreloadRate:   c.Cache.PreloadRate,
	}
}

// PipelineOptions converts the pipeline section.
func (c *Config) PipelineOptions() pipeline.Options {
	p := c.Pipeline
	return pipeline.Options{
		QueueSize:       p.QueueSize,
		Workers:         p.Workers,
		BatchSize:       p.BatchSize,
		MinBatchSize:    p.MinBatchSize,
		BatchPause:      p.BatchPause,
		MonitorInterval: p.MonitorInterval,
		StressThreshold: p.StressThreshold,
		TargetTick:      p.TargetTick,
		DecreaseFactor:  p.DecreaseFactor,
		RecoveryFactor:  p.RecoveryFactor,
	}
}

// ShockwaveParams converts the shockwave section. Geometry is left to the
// caller.
func (c *Config) ShockwaveParams() shockwave.Params {
	s := c.Shockwave
	return shockwave.Params{
		MinPower:         s.MinPower,
		MaxPower:         s.MaxPower,
		MaxHeight:        s.MaxHeight,
		WallDepth:        s.WallDepth,
		PenetrationScale: s.PenetrationScale,
		GapSearch:        s.GapSearch,
		GapCost:          s.GapCost,
		Workers:          s.Workers,
		QueueSize:        s.QueueSize,
	}
}

// TreeOptions converts the tree section.
func (c *Config) TreeOptions() tree.Options {
	return tree.Options{
		BaseSearchDepth:  c.Tree.BaseSearchDepth,
		DestroyThreshold: c.Tree.DestroyThreshold,
		MaxDisplacement:  c.Tree.MaxDisplacement,
		Lean:             c.Tree.Lean,
	}
}

// ParseLevel maps a log level name onto slog. The empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log: unknown level %q", s)
}

// Merge applies file-loaded world and logging values into cfg, but only for
// fields that were NOT explicitly set via CLI flags. explicitFlags contains
// the flag names that were explicitly provided on the command line. Engine
// sections have no flags and are always taken from the file.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	cfg.Cache = fromFile.Cache
	cfg.Pipeline = fromFile.Pipeline
	cfg.Shockwave = fromFile.Shockwave
	cfg.Crater = fromFile.Crater
	cfg.Tree = fromFile.Tree

	if !explicitFlags["generator"] {
		cfg.World.Generator = fromFile.World.Generator
	}
	if !explicitFlags["seed"] {
		cfg.World.Seed = fromFile.World.Seed
	}
	if !explicitFlags["world-radius"] {
		cfg.World.Radius = fromFile.World.Radius
	}
	if !explicitFlags["log-level"] {
		cfg.Log.Level = fromFile.Log.Level
	}
	if !explicitFlags["journal"] {
		cfg.Journal.Path = fromFile.Journal.Path
	}
	if !explicitFlags["rules"] {
		cfg.Rules.File = fromFile.Rules.File
	}
	if !explicitFlags["rules-source"] {
		cfg.Rules.Source = fromFile.Rules.Source
	}
}
