package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/schemefs/schemefs/internal/adapter"
	"github.com/schemefs/schemefs/internal/config"
)

var (
	configFile = flag.String("config", "", "path to a YAML configuration file")
	device     = flag.String("device", "", "backing device URI (mem:// or s3://bucket)")
	logLevel   = flag.String("log-level", "", "log level: DEBUG, INFO, WARN, ERROR")
)

func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
	return logger
}

func loadConfig() (*config.Configuration, error) {
	cfg := config.NewDefault()
	if *configFile != "" {
		if err := cfg.LoadFromFile(*configFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if *device != "" {
		cfg.Storage.Device = *device
	}
	if *logLevel != "" {
		cfg.Global.LogLevel = *logLevel
	}
	return cfg, nil
}

func run() int {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("configuration failed", "err", err)
		return 1
	}
	logger := setupLogging(cfg.Global.LogLevel)

	a, err := adapter.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := a.Start(ctx); err != nil {
		logger.Error("startup failed", "err", err)
		return 1
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := a.Stop(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
