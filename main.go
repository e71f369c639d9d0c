// go_transcript is a YouTube transcript MCP server.
//
// Exposes six MCP tools: get_transcript, search_transcript, batch_transcripts,
// transcript_summary, collection_video_urls, collection_transcripts.
// Runs as HTTP MCP server or stdio transport.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/transcript"
	"github.com/anatolykoptev/go_transcript/internal/transcriptserver"
	"github.com/anatolykoptev/go_transcript/internal/youtube"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", slog.Any("error", err))
	}
	mcpPort := env.Str("MCP_PORT", "8893")
	cfg := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := engine.NewCache(ctx, cfg.RedisURL, cfg.CacheTTL, cfg.CacheMaxEntries, cfg.CacheCleanupInterval)
	defer cache.Close()
	metrics := engine.NewMetrics(cache)

	yt := youtube.NewClient(youtube.Options{
		BaseURL:           cfg.YouTubeBaseURL,
		HTTPClient:        cfg.HTTPClient,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.RequestBurst,
		Metrics:           metrics,
	})

	svc, err := transcript.NewService(transcript.Config{
		Fetcher:          yt,
		Resolver:         yt,
		Cache:            cache,
		Metrics:          metrics,
		BatchConcurrency: cfg.BatchMaxConcurrent,
		BatchPause:       cfg.BatchPause,
		FetchTimeout:     cfg.FetchTimeout,
	})
	if err != nil {
		slog.Error("service init failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting go_transcript",
		slog.String("port", mcpPort),
		slog.String("youtube", cfg.YouTubeBaseURL),
		slog.Bool("redis", cfg.RedisURL != ""),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_transcript",
		Version: version,
	}, nil)

	transcriptserver.RegisterTools(server, svc)
	slog.Info("tools registered", slog.Int("count", transcriptserver.ToolCount))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_transcript",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      metrics.Format,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func loadConfig() engine.Config {
	c := engine.Config{
		YouTubeBaseURL:       env.Str("YT_BASE_URL", youtube.DefaultBaseURL),
		RequestsPerSecond:    env.Float("YT_REQUESTS_PER_SECOND", 2),
		RequestBurst:         env.Int("YT_BURST", 2),
		HTTPTimeout:          env.Duration("HTTP_TIMEOUT", 15*time.Second),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 30*time.Second),
		BatchMaxConcurrent:   env.Int("BATCH_MAX_CONCURRENT", transcript.DefaultBatchConcurrency),
		BatchPause:           env.Duration("BATCH_PAUSE", time.Second),
		RedisURL:             env.Str("REDIS_URL", ""),
		CacheTTL:             env.Duration("CACHE_TTL", 30*time.Minute),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 500),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
	}
	c.HTTPClient = engine.NewHTTPClient(c.HTTPTimeout)
	return c
}
