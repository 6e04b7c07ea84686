package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/ttscribe/internal/api"
	"github.com/snarg/ttscribe/internal/config"
	"github.com/snarg/ttscribe/internal/scrape"
	"github.com/snarg/ttscribe/internal/store"
	"github.com/snarg/ttscribe/internal/transcribe"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "HTTP listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flag.StringVar(&overrides.UploadDir, "upload-dir", "", "directory for downloaded media and transcriptions")
	flag.Parse()

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("ttscribe starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("failed to create upload directory")
	}

	// Speech engine. The model loads lazily on the first transcription
	// request, so startup stays fast even with a large model configured.
	engineLog := log.With().Str("component", "engine").Logger()
	engine := transcribe.NewFasterWhisperEngine(transcribe.FasterWhisperOptions{
		Python:     cfg.PythonPath,
		CPUThreads: cfg.WhisperCPUThreads,
		NumWorkers: cfg.WhisperNumWorkers,
		Stability:  cfg.Stability(),
		Log:        engineLog,
	})
	adapter := transcribe.NewAdapter(engine, engineLog)
	defer adapter.Close()

	// Result store
	storeLog := log.With().Str("component", "store").Logger()
	st := store.New(cfg.UploadDir, storeLog)

	// Channel scraper
	scrapeLog := log.With().Str("component", "scrape").Logger()
	scraper := scrape.New(cfg.YtdlpPath, cfg.UploadDir, scrapeLog)

	// Pipeline service
	svcLog := log.With().Str("component", "transcribe").Logger()
	svc := transcribe.NewService(adapter, st, cfg.TranscribeDefaults(), nil, svcLog)

	// Watcher keeps the stored-file gauges current.
	watcher := store.NewWatcher(cfg.UploadDir, log.With().Str("component", "watcher").Logger())
	if err := watcher.Start(); err != nil {
		log.Warn().Err(err).Msg("store watcher unavailable, file gauges will be stale")
	} else {
		defer watcher.Stop()
	}

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, api.Deps{
		Scraper:     scraper,
		Transcriber: svc,
		Records:     st,
		Model:       adapter,
		Version:     version,
		StartTime:   startTime,
	}, httpLog)

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("ttscribe stopped")
}
