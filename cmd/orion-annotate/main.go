package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/e7canasta/orion-annotate/internal/config"
)

const (
	version           = "v0.1.0"
	defaultConfigPath = "config/annotate.yaml"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file (optional)")
	input := flag.String("input", "", "Input video file (overrides config)")
	output := flag.String("output", "", "Output video file (overrides config)")
	serve := flag.Bool("serve", false, "Keep running and accept runs over MQTT")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *input != "" {
		cfg.Input = *input
	}
	if *output != "" {
		cfg.Output = *output
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	setupLogger(cfg)

	slog.Info("starting orion-annotate",
		"version", version,
		"config", *configPath,
		"serve", *serve,
	)

	// Create context with cancellation for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx, *serve); err != nil {
		slog.Error("annotate failed", "error", err)
		os.Exit(1)
	}

	slog.Info("orion-annotate stopped")
}

// setupLogger installs the structured logger described by cfg
func setupLogger(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
