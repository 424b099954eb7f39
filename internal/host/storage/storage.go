// Package storage persists the reference host's world modifications.
package storage

import (
	"cmp"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-theft-craft/blast/internal/host/memory"
	"github.com/go-theft-craft/blast/internal/world"
	"github.com/go-theft-craft/blast/pkg/material"
)

// Storage handles file-based persistence of world overrides.
type Storage struct {
	dir string
	log *slog.Logger
}

// New creates a new Storage rooted at dir, creating subdirectories as needed.
func New(dir string, log *slog.Logger) (*Storage, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	d := filepath.Join(dir, "world")
	if err := os.MkdirAll(d, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", d, err)
	}
	return &Storage{dir: dir, log: log}, nil
}

func (s *Storage) worldPath() string {
	return filepath.Join(s.dir, "world", "overrides.json")
}

// LoadWorld reads overrides.json and bulk-loads block overrides into the
// world. A missing file leaves the world untouched and returns nil data.
func (s *Storage) LoadWorld(w *memory.World) (*WorldData, error) {
	path := s.worldPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read world overrides: %w", err)
	}

	var wd WorldData
	if err := json.Unmarshal(data, &wd); err != nil {
		return nil, fmt.Errorf("parse world overrides: %w", err)
	}

	blocks := make(map[world.BlockPos]material.Block, len(wd.Overrides))
	for _, o := range wd.Overrides {
		blocks[world.BlockPos{X: o.X, Y: o.Y, Z: o.Z}] = material.Block{
			Material: material.Material(o.Material),
			State:    o.State.state(),
		}
	}
	biomes := make(map[[2]int]string, len(wd.Biomes))
	for _, b := range wd.Biomes {
		biomes[[2]int{b.X, b.Z}] = b.Biome
	}

	w.LoadOverrides(blocks, biomes)
	s.log.Info("loaded world overrides", "count", len(blocks), "biomes", len(biomes))
	return &wd, nil
}

// SaveWorld writes all block overrides to overrides.json atomically.
// Overrides are sorted so identical worlds produce identical files.
func (s *Storage) SaveWorld(w *memory.World, generator string, seed int64) error {
	wd := WorldData{Generator: generator, Seed: seed}
	w.ForEachOverride(func(pos world.BlockPos, b material.Block) {
		wd.Overrides = append(wd.Overrides, BlockOverride{
			X: pos.X, Y: pos.Y, Z: pos.Z,
			Material: string(b.Material),
			State:    stateData(b.State),
		})
	})
	w.ForEachBiome(func(x, z int, biome string) {
		wd.Biomes = append(wd.Biomes, BiomeOverride{X: x, Z: z, Biome: biome})
	})
	slices.SortFunc(wd.Overrides, func(a, b BlockOverride) int {
		return cmp.Or(cmp.Compare(a.X, b.X), cmp.Compare(a.Z, b.Z), cmp.Compare(a.Y, b.Y))
	})
	slices.SortFunc(wd.Biomes, func(a, b BiomeOverride) int {
		return cmp.Or(cmp.Compare(a.X, b.X), cmp.Compare(a.Z, b.Z))
	})

	if err := s.atomicWriteJSON(s.worldPath(), &wd); err != nil {
		return err
	}
	s.log.Info("saved world overrides", "count", len(wd.Overrides), "biomes", len(wd.Biomes))
	return nil
}

// atomicWriteJSON marshals v to JSON and writes it atomically using a temp file + rename.
func (s *Storage) atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
