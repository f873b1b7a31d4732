// Command indexer runs index builds outside the API server: build a flat
// snapshot from a CSV inventory export, or rebuild/backfill the pgvector
// index for a dealership.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/aryanmundre/MaqroDealerships-sub000/engine/inventory"
	"github.com/aryanmundre/MaqroDealerships-sub000/engine/retrieval"
	"github.com/aryanmundre/MaqroDealerships-sub000/engine/semantic"
	"github.com/aryanmundre/MaqroDealerships-sub000/pkg/embed"
)

func main() {
	var (
		mode       = flag.String("mode", "snapshot", "snapshot | rebuild | backfill")
		csvPath    = flag.String("csv", "", "inventory CSV path (snapshot mode)")
		dealership = flag.String("dealership", "", "dealership id")
		snapshot   = flag.String("snapshot", "data/index", "snapshot base path (snapshot mode)")
		dsn        = flag.String("dsn", os.Getenv("POSTGRES_DSN"), "postgres DSN (rebuild/backfill modes)")
		dims       = flag.Int("dims", envIntOr("EMBED_DIMS", 1536), "embedding dimension")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(*mode, *csvPath, *dealership, *snapshot, *dsn, *dims, logger); err != nil {
		logger.Error("indexer failed", "err", err)
		os.Exit(1)
	}
}

func run(mode, csvPath, dealership, snapshot, dsn string, dims int, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if dealership == "" {
		return fmt.Errorf("-dealership is required")
	}

	embedOpts := embed.DefaultOptions(envOr("EMBED_MODEL", "text-embedding-3-small"))
	embedOpts.RequestsPerSecond = envFloatOr("EMBED_RPS", 10)
	provider := embed.NewClient(envOr("EMBED_URL", "http://localhost:8000"), os.Getenv("EMBED_API_KEY"), embedOpts)

	var (
		index  semantic.Index
		source inventory.Source
	)
	switch mode {
	case "snapshot":
		if csvPath == "" {
			return fmt.Errorf("-csv is required in snapshot mode")
		}
		index = semantic.NewFlatIndex()
		source = inventory.NewCSVSource(csvPath, logger)
	case "rebuild", "backfill":
		if dsn == "" {
			return fmt.Errorf("-dsn is required in %s mode", mode)
		}
		db, err := sqlx.Open("postgres", dsn)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		pg := semantic.NewPgIndexFromDB(db, dims)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		index = pg
		source = inventory.NewPgSource(db)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	opts := retrieval.DefaultOptions()
	if mode == "snapshot" {
		opts.SnapshotBase = snapshot
	}
	svc := retrieval.New(index, provider, source, opts, logger, nil)
	if err := svc.Init(ctx); err != nil {
		return err
	}

	var n int
	var err error
	if mode == "backfill" {
		n, err = svc.BackfillMissing(ctx, dealership)
	} else {
		n, err = svc.RebuildIndex(ctx, dealership)
	}
	if err != nil {
		return err
	}
	logger.Info("indexer done", "mode", mode, "dealership", dealership, "items", n)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
