package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	getter "github.com/hashicorp/go-getter"

	"github.com/go-theft-craft/blast/internal/transform"
)

// FetchRulePack downloads the single rule file named by src to dst. src is
// any go-getter URL ("git::https://host/repo.git//rules.yaml",
// "https://host/rules.yaml", "s3::...", or a local path).
func FetchRulePack(ctx context.Context, src, dst string) error {
	if src == "" {
		return fmt.Errorf("fetch rule pack: empty source")
	}
	if dst == "" {
		return fmt.Errorf("fetch rule pack: empty destination")
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create rule pack dir: %w", err)
	}
	pwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("fetch rule pack: %w", err)
	}
	client := &getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: getter.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return fmt.Errorf("fetch rule pack %s: %w", src, err)
	}
	return nil
}

// LoadRules returns the transformation engine the rules section selects:
// the fetched or local rule file when one is named, the built-in rules
// otherwise.
func (c *Config) LoadRules(ctx context.Context) (*transform.Engine, error) {
	if c.Rules.Source != "" {
		if c.Rules.File == "" {
			return nil, fmt.Errorf("rules: source %q needs a destination file", c.Rules.Source)
		}
		if err := FetchRulePack(ctx, c.Rules.Source, c.Rules.File); err != nil {
			return nil, err
		}
	}
	if c.Rules.File == "" {
		return transform.Default(), nil
	}
	return transform.LoadFile(c.Rules.File)
}
