package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/go-theft-craft/blast/internal/cache"
	"github.com/go-theft-craft/blast/internal/config"
	"github.com/go-theft-craft/blast/internal/explosion"
	"github.com/go-theft-craft/blast/internal/host/memory"
	"github.com/go-theft-craft/blast/internal/host/storage"
	"github.com/go-theft-craft/blast/internal/journal"
	"github.com/go-theft-craft/blast/pkg/world/gen"
)

func main() {
	cfg := config.Default()

	configPath := flag.String("config", "", "path to a YAML config file")
	flag.StringVar(&cfg.World.Generator, "generator", cfg.World.Generator, "world generator: default or flat")
	flag.Int64Var(&cfg.World.Seed, "seed", cfg.World.Seed, "world seed")
	flag.IntVar(&cfg.World.Radius, "world-radius", cfg.World.Radius, "world boundary in chunks (0 = infinite)")
	flag.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn or error")
	flag.StringVar(&cfg.Journal.Path, "journal", cfg.Journal.Path, "SQLite journal path (empty disables)")
	flag.StringVar(&cfg.Rules.File, "rules", cfg.Rules.File, "transformation rule file (empty uses built-in rules)")
	flag.StringVar(&cfg.Rules.Source, "rules-source", cfg.Rules.Source, "go-getter URL to fetch the rule file from")

	x := flag.Int("x", 0, "blast x")
	z := flag.Int("z", 0, "blast z")
	radius := flag.Int("radius", 24, "shockwave radius in blocks")
	craterRadius := flag.Float64("crater", 8, "crater radius in blocks (0 = no crater)")
	depth := flag.Float64("depth", 6, "crater depth in blocks")
	power := flag.Float64("power", 1, "shockwave power scale")
	tick := flag.Duration("tick", 50*time.Millisecond, "reference host tick interval")
	saveDir := flag.String("save", "", "directory to load and save world overrides")
	metricsAddr := flag.String("metrics", "", "address to serve Prometheus metrics on, e.g. :9100")
	flag.Parse()

	bootLog := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if *configPath != "" {
		fromFile, err := config.Load(*configPath)
		if err != nil {
			bootLog.Error("load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		explicit := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		config.Merge(cfg, fromFile, explicit)
	}
	if err := cfg.Validate(); err != nil {
		bootLog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	level, _ := config.ParseLevel(cfg.Log.Level)
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log, blastFlags{
		x: *x, z: *z, radius: *radius, crater: *craterRadius, depth: *depth, power: *power,
		tick: *tick, saveDir: *saveDir, metricsAddr: *metricsAddr,
	}); err != nil {
		log.Error("blast failed", "error", err)
		os.Exit(1)
	}
}

type blastFlags struct {
	x, z          int
	radius        int
	crater, depth float64
	power         float64
	tick          time.Duration
	saveDir       string
	metricsAddr   string
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, f blastFlags) error {
	if f.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: f.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", "error", err)
			}
		}()
		defer srv.Close()
		log.Info("serving metrics", "addr", f.metricsAddr)
	}

	rules, err := cfg.LoadRules(ctx)
	if err != nil {
		return err
	}

	generator, ok := gen.New(cfg.World.Generator, cfg.World.Seed)
	if !ok {
		return errors.New("unknown generator " + cfg.World.Generator)
	}
	host := memory.NewHost(generator, f.tick, log)
	host.SetRadius(cfg.World.Radius)

	var store *storage.Storage
	if f.saveDir != "" {
		if store, err = storage.New(f.saveDir, log); err != nil {
			return err
		}
		data, err := store.LoadWorld(host.World)
		if err != nil {
			return err
		}
		if data != nil && (data.Generator != cfg.World.Generator || data.Seed != cfg.World.Seed) {
			log.Warn("saved overrides were made for another world",
				"saved_generator", data.Generator, "saved_seed", data.Seed)
		}
	}

	hostCtx, stopHost := context.WithCancel(context.Background())
	hostDone := make(chan struct{})
	go func() {
		defer close(hostDone)
		host.Run(hostCtx)
	}()
	defer func() {
		stopHost()
		<-hostDone
	}()

	var j *journal.Journal
	if cfg.Journal.Path != "" {
		if j, err = journal.Open(cfg.Journal.Path, log); err != nil {
			return err
		}
	}
	engine, err := explosion.New(cfg, rules, j, log)
	if err != nil {
		if j != nil {
			_ = j.Close()
		}
		return err
	}
	defer engine.Close()

	inst, err := engine.Instance("overworld", host)
	if err != nil {
		return err
	}
	reach := max(f.radius, int(f.crater)+1)
	if err := inst.Cache.Preload(ctx, cache.ChunksAround(f.x, f.z, reach), 0); err != nil {
		return err
	}

	res, err := engine.Detonate(ctx, "overworld", host, explosion.Blast{
		X:            f.x,
		Z:            f.z,
		Surface:      true,
		Radius:       f.radius,
		CraterRadius: f.crater,
		CraterDepth:  f.depth,
		Power:        f.power,
	})
	if err != nil {
		return err
	}

	st := inst.Pipeline.Stats()
	cs := inst.Cache.Stats()
	log.Info("summary",
		"run", res.RunID,
		"mutated", res.Mutated,
		"rings", res.Rings,
		"crater_radius", res.EffectiveRadius,
		"took", res.Duration,
		"committed", st.Committed,
		"failed", st.Failed,
		"batches", st.Batches,
		"batch_size", st.BatchSize,
		"cache_local_hits", cs.LocalHits,
		"host_loads", host.Loads(),
		"ticks", host.Ticks(),
	)

	// Close drains the pipeline so every accepted change is in the world
	// before it is saved.
	if err := engine.Close(); err != nil {
		return err
	}
	if store != nil {
		if err := store.SaveWorld(host.World, cfg.World.Generator, cfg.World.Seed); err != nil {
			return err
		}
	}
	return nil
}
