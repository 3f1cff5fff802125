// Copyright 2026 The MedExa Gateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the MedExa gateway server.
// The gateway fronts a priority-ordered list of LLM providers behind an
// emergency-aware medical chat API with automatic model fallback.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/medexa/gateway/internal/api"
	"github.com/medexa/gateway/internal/buildinfo"
	"github.com/medexa/gateway/internal/chat"
	"github.com/medexa/gateway/internal/config"
	"github.com/medexa/gateway/internal/gate"
	"github.com/medexa/gateway/internal/heartbeat"
	"github.com/medexa/gateway/internal/history"
	"github.com/medexa/gateway/internal/logging"
	"github.com/medexa/gateway/internal/providers"
	"github.com/medexa/gateway/internal/retrieval"
	"github.com/medexa/gateway/internal/router"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("medexa-gateway %s (commit %s, built %s)\n",
			buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return
	}

	if err := run(*configPath); err != nil {
		log.Fatalf("Gateway failed: %v", err)
	}
}

func run(configPath string) error {
	// Optional .env for API keys referenced from the config file.
	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded environment from .env")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.SetDebug(cfg.Debug)
	logging.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogsDir)
	log.Infof("MedExa gateway %s starting (%d providers)", buildinfo.Version, len(cfg.Providers))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, err := gate.New(cfg.Emergency.Keywords)
	if err != nil {
		return fmt.Errorf("build emergency gate: %w", err)
	}
	if path := cfg.Emergency.KeywordsFile; path != "" {
		watcher, err := gate.NewWatcher(g, path)
		if err != nil {
			return fmt.Errorf("load emergency keywords file: %w", err)
		}
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("watch emergency keywords file: %w", err)
		}
		defer watcher.Stop()
	}

	var searcher retrieval.Searcher = retrieval.Noop{}
	if cfg.Retrieval.Enabled {
		searcher = retrieval.NewClient(cfg.Retrieval)
	} else {
		log.Warn("Reference retrieval disabled, answers will not be grounded")
	}

	store, err := history.Open(ctx, cfg.History)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	specs, err := providers.Build(cfg)
	if err != nil {
		return fmt.Errorf("build providers: %w", err)
	}
	stats := router.NewStatsTracker()
	rt := router.New(specs, stats)
	for _, spec := range rt.Specs() {
		log.Infof("Provider registered: %s (priority %d, capabilities %v)",
			spec.Name, spec.Priority, spec.Capabilities)
	}

	var monitor *heartbeat.Monitor
	if cfg.Heartbeat.Enabled {
		monitor = heartbeat.NewMonitor(cfg)
		if err := monitor.Start(ctx); err != nil {
			return fmt.Errorf("start heartbeat monitor: %w", err)
		}
		defer monitor.Stop()
	}

	pipeline := chat.New(g, searcher, store, rt, cfg.Retrieval.TopK)
	server := api.NewServer(cfg, pipeline, stats, monitor)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutdown signal received, draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Gateway stopped")
	return nil
}
