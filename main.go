// go_transcript: YouTube transcript extraction service.
//
// Serves plain-text transcripts over HTTP (GET /?v=<id or url>, or a link pasted after
// the host) and exposes the same pipeline as the youtube_transcript MCP tool.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/sources"
	"github.com/anatolykoptev/go_transcript/internal/transcriptserver"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file, using process environment")
	}

	httpPort := env.Str("HTTP_PORT", "8892")
	mcpPort := env.Str("MCP_PORT", "8893")
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := engine.NewCache(openStore(ctx), cfg.CacheTTL, cfg.CacheMaxEntries, cfg.CacheCleanupInterval)
	defer cache.Close()

	fetcher, err := engine.NewFetcher(cfg)
	if err != nil {
		slog.Error("fetcher init failed", slog.Any("error", err))
		os.Exit(1)
	}
	pipeline := sources.NewPipeline(fetcher, cache, cfg.SingleFlight)

	slog.Info("starting go_transcript",
		slog.String("http_port", httpPort),
		slog.String("mcp_port", mcpPort),
		slog.Bool("single_flight", cfg.SingleFlight),
	)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           transcriptserver.NewRouter(pipeline, engine.FormatMetrics),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	if mcpPort != "" {
		go runMCP(mcpPort, pipeline, stop)
	}

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown failed", slog.Any("error", err))
	}
}

func runMCP(port string, pipeline *sources.Pipeline, stop context.CancelFunc) {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_transcript",
		Version: version,
	}, nil)

	transcriptserver.RegisterTools(server, pipeline)
	slog.Info("tools registered", slog.Int("count", 1))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_transcript",
		Version:      version,
		Port:         port,
		WriteTimeout: 120 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("mcp server failed", slog.Any("error", err))
		stop()
	}
}

func loadConfig() engine.Config {
	d := engine.DefaultConfig()
	return engine.Config{
		YouTubeBaseURL:       env.Str("YOUTUBE_BASE_URL", d.YouTubeBaseURL),
		CaptionLang:          env.Str("CAPTION_LANG", d.CaptionLang),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", d.FetchTimeout),
		ProxyURL:             env.Str("PROXY_URL", ""),
		UpstreamRPS:          env.Float("UPSTREAM_RPS", 0),
		UpstreamBurst:        env.Int("UPSTREAM_BURST", d.UpstreamBurst),
		CacheTTL:             env.Duration("CACHE_TTL", d.CacheTTL),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", d.CacheMaxEntries),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", d.CacheCleanupInterval),
		SingleFlight:         env.Str("SINGLE_FLIGHT", "true") != "false",
	}
}

// openStore picks the L2 cache tier. CACHE_BACKEND wins; otherwise the first configured
// URL (Redis, Postgres, Mongo) is used. Any failure degrades to L1 only.
func openStore(ctx context.Context) engine.Store {
	redisURL := env.Str("REDIS_URL", "")
	databaseURL := env.Str("DATABASE_URL", "")
	mongoURL := env.Str("MONGO_URL", "")

	backend := strings.ToLower(env.Str("CACHE_BACKEND", ""))
	if backend == "" {
		switch {
		case redisURL != "":
			backend = "redis"
		case databaseURL != "":
			backend = "postgres"
		case mongoURL != "":
			backend = "mongo"
		default:
			backend = "memory"
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var (
		store engine.Store
		err   error
	)
	switch backend {
	case "memory":
		return nil
	case "redis":
		store, err = engine.NewRedisStore(connectCtx, redisURL)
	case "postgres":
		store, err = engine.NewPostgresStore(connectCtx, databaseURL)
	case "mongo":
		store, err = engine.NewMongoStore(connectCtx, mongoURL, env.Str("MONGO_DB", "transcripts"))
	default:
		slog.Warn("unknown CACHE_BACKEND, using memory only", slog.String("backend", backend))
		return nil
	}
	if err != nil {
		slog.Warn("cache L2 init failed, using memory only", slog.String("backend", backend), slog.Any("error", err))
		return nil
	}
	slog.Info("cache L2 connected", slog.String("backend", backend))
	return store
}
