package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gocharts/internal/config"
	"gocharts/internal/notifier"
	"gocharts/internal/recorder"
	"gocharts/internal/server"
	"gocharts/internal/sweeper"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Str("log_level", cfg.LogLevel).Msg("invalid log level, use: debug, info, warn, error")
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Str("dir", cfg.Charts.Directory).Msg("gocharts starting")

	// Ensure output directory exists
	if err := os.MkdirAll(cfg.Charts.Directory, 0o755); err != nil {
		log.Fatal().Err(err).Msg("create charts directory")
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init notifier
	var notif notifier.Notifier
	qn, err := notifier.NewQueue(ctx, cfg.Transport.Endpoint)
	if err != nil {
		log.Warn().Err(err).Msg("init queue notifier failed, notifications disabled")
		notif = notifier.NewNoop()
	} else {
		notif = qn
		defer qn.Close()
	}

	// Init retention sweeper
	if cfg.Retention.MaxAgeDays > 0 {
		sw := sweeper.New(cfg.Charts.Directory, cfg.Retention.MaxAgeDays)
		if err := sw.Register(cfg.Retention.SweepCron); err != nil {
			log.Fatal().Err(err).Msg("register retention sweep")
		}
		sw.Start()
		defer sw.Stop()
	}

	// Run the request server
	srv := server.New(cfg, notif, rec)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
	}()

	// Wait for shutdown signal or server failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info().Msg("shutdown signal received, stopping")
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}

	log.Info().Msg("gocharts stopped")
}
