package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-theft-craft/blast/internal/config"
	"github.com/go-theft-craft/blast/internal/transform"
)

func main() {
	var (
		src = flag.String("src", "", "rule pack URL, e.g. git::https://example.org/packs.git//rules.yaml")
		out = flag.String("o", "./rules.yaml", "output file path")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *src == "" {
		log.Error("source url required")
		os.Exit(2)
	}
	if *out == "" {
		log.Error("output file path required")
		os.Exit(2)
	}

	if err := os.RemoveAll(*out); err != nil {
		log.Error("remove previous rule pack", "path", *out, "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("start downloading rule pack", "src", *src, "dst", *out)
	if err := config.FetchRulePack(ctx, *src, *out); err != nil {
		log.Error("download rule pack", "error", err)
		os.Exit(1)
	}

	engine, err := transform.LoadFile(*out)
	if err != nil {
		log.Error("invalid rule pack", "path", *out, "error", err)
		os.Exit(1)
	}
	log.Info("done downloading rule pack", "path", *out, "rules", len(engine.Rules()))
}
