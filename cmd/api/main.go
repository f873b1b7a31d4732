// Package main implements the Maqro retrieval API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"

	"github.com/aryanmundre/MaqroDealerships-sub000/engine/ingest"
	"github.com/aryanmundre/MaqroDealerships-sub000/engine/inventory"
	"github.com/aryanmundre/MaqroDealerships-sub000/engine/retrieval"
	"github.com/aryanmundre/MaqroDealerships-sub000/engine/semantic"
	"github.com/aryanmundre/MaqroDealerships-sub000/pkg/embed"
	"github.com/aryanmundre/MaqroDealerships-sub000/pkg/metrics"
	"github.com/aryanmundre/MaqroDealerships-sub000/pkg/mid"
	"github.com/aryanmundre/MaqroDealerships-sub000/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port          string
	Backend       string // "flat" or "pg"
	SnapshotBase  string
	PostgresDSN   string
	InventoryCSV  string
	EmbedURL      string
	EmbedAPIKey   string
	EmbedModel    string
	EmbedDims     int
	EmbedRPS      float64
	EmbedCacheCap int
	NATSURL       string
	CORSOrigin    string
	RequestRate   float64
	RequestBurst  int
}

func loadConfig() Config {
	return Config{
		Port:          envOr("PORT", "8080"),
		Backend:       envOr("INDEX_BACKEND", "flat"),
		SnapshotBase:  envOr("INDEX_SNAPSHOT", "data/index"),
		PostgresDSN:   envOr("POSTGRES_DSN", ""),
		InventoryCSV:  envOr("INVENTORY_CSV", ""),
		EmbedURL:      envOr("EMBED_URL", "http://localhost:8000"),
		EmbedAPIKey:   envOr("EMBED_API_KEY", ""),
		EmbedModel:    envOr("EMBED_MODEL", "text-embedding-3-small"),
		EmbedDims:     envIntOr("EMBED_DIMS", 1536),
		EmbedRPS:      envFloatOr("EMBED_RPS", 10),
		EmbedCacheCap: envIntOr("EMBED_CACHE_CAP", 4096),
		NATSURL:       envOr("NATS_URL", ""),
		CORSOrigin:    envOr("CORS_ORIGIN", "*"),
		RequestRate:   envFloatOr("REQUEST_RATE", 50),
		RequestBurst:  envIntOr("REQUEST_BURST", 100),
	}
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

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()

	// --- Embedding provider ---
	embedOpts := embed.DefaultOptions(cfg.EmbedModel)
	embedOpts.RequestsPerSecond = cfg.EmbedRPS
	var provider embed.Provider = embed.NewClient(cfg.EmbedURL, cfg.EmbedAPIKey, embedOpts)
	provider, err := embed.NewCached(provider, cfg.EmbedCacheCap)
	if err != nil {
		return fmt.Errorf("embed cache: %w", err)
	}

	// --- Vector index and inventory source ---
	var (
		index  semantic.Index
		source inventory.Source
	)
	switch cfg.Backend {
	case "flat":
		index = semantic.NewFlatIndex()
		if cfg.InventoryCSV != "" {
			source = inventory.NewCSVSource(cfg.InventoryCSV, logger)
		}
	case "pg":
		if cfg.PostgresDSN == "" {
			return fmt.Errorf("pg backend requires POSTGRES_DSN")
		}
		db, err := sqlx.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		pg := semantic.NewPgIndexFromDB(db, cfg.EmbedDims)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		index = pg
		source = inventory.NewPgSource(db)
	default:
		return fmt.Errorf("unknown INDEX_BACKEND %q", cfg.Backend)
	}

	// --- Retrieval service ---
	opts := retrieval.DefaultOptions()
	if cfg.Backend == "flat" {
		opts.SnapshotBase = cfg.SnapshotBase
	}
	svc := retrieval.New(index, provider, source, opts, logger, reg)
	if err := svc.Init(ctx); err != nil {
		return fmt.Errorf("init retrieval: %w", err)
	}

	// --- Optional inventory-event worker ---
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Close()
		worker := ingest.NewWorker(nc, svc, logger)
		if err := worker.Start(); err != nil {
			return fmt.Errorf("start ingest worker: %w", err)
		}
		defer worker.Stop()
		logger.Info("inventory event worker started", "url", cfg.NATSURL)
	}

	// --- HTTP server ---
	mux := http.NewServeMux()
	registerRoutes(mux, svc, logger)
	mux.Handle("GET /metrics", reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("maqro-api"),
		mid.RateLimit(resilience.NewLimiter(resilience.LimiterOpts{
			Rate:  cfg.RequestRate,
			Burst: cfg.RequestBurst,
		})),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "backend", cfg.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svc.Shutdown(shutCtx); err != nil {
		logger.Error("retrieval shutdown", "err", err)
	}
	return srv.Shutdown(shutCtx)
}
