package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"

	"github.com/fwhmon/fwhmon/pkg/franklin"
	"github.com/fwhmon/fwhmon/pkg/log"
	"github.com/fwhmon/fwhmon/pkg/poller"
	"github.com/fwhmon/fwhmon/pkg/sink"
	"github.com/fwhmon/fwhmon/pkg/types"
)

func main() {
	// credentials come from the environment; a .env file is an optional
	// convenience for local runs
	_ = godotenv.Load()

	interval := lflag.Duration("poll-interval", 30*time.Second, "How often to poll the gateway for stats")
	baseURL := lflag.String("api-base-url", franklin.DefaultBaseURL, "FranklinWH cloud API base URL")
	sinks := sink.Configured()

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	log.SetDefaultLogLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	username := os.Getenv("FWH_USERNAME")
	password := os.Getenv("FWH_PASSWORD")
	if username == "" || password == "" {
		log.Ctx(ctx).ErrorContext(ctx, "FWH_USERNAME and FWH_PASSWORD must be set")
		os.Exit(1)
	}

	fetcher := franklin.NewTokenFetcher(username, password, franklin.WithFetcherBaseURL(*baseURL))
	// FWH_GATEWAY is optional with a single-gateway account
	client := franklin.New(fetcher, os.Getenv("FWH_GATEWAY"), franklin.WithBaseURL(*baseURL))

	defer func() {
		if err := sinks.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close sinks", slog.Any("error", err))
		}
	}()

	p := poller.New(client.GetStats, *interval, poller.WithOnUpdate(func(ctx context.Context, stats types.Stats) {
		sinks.Publish(log.WithGateway(ctx, client.GatewayID()), client.GatewayID(), stats)
	}))

	log.Ctx(ctx).InfoContext(ctx, "polling gateway stats",
		slog.Duration("interval", *interval),
		slog.Int("sinks", sinks.Len()),
	)
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Ctx(ctx).ErrorContext(ctx, "poller failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "poller exited cleanly")
}
