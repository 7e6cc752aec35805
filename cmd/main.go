package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"cyberml/config"
	"cyberml/db"
	"cyberml/detector"
	chttp "cyberml/http"
	"cyberml/logging"
	"cyberml/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Look for config in root even if run from cmd/
	if _, err := os.Stat(*configPath); os.IsNotExist(err) && !filepath.IsAbs(*configPath) {
		if _, err := os.Stat(filepath.Join("..", *configPath)); err == nil {
			*configPath = filepath.Join("..", *configPath)
		}
	}

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. Load models; the service never starts with a partial set
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	artifacts, err := detector.LoadArtifacts(ctx, detector.ArtifactPaths{
		MalwareModel:    cfg.Models.Path(cfg.Models.MalwareModel),
		MalwareFeatures: cfg.Models.Path(cfg.Models.MalwareFeatures),
		SpamModel:       cfg.Models.Path(cfg.Models.SpamModel),
		SpamVectorizer:  cfg.Models.Path(cfg.Models.SpamVectorizer),
		SpamKeywords:    cfg.Models.Path(cfg.Models.SpamKeywords),
	}, logger)
	cancel()
	if err != nil {
		logger.Fatal("failed to load models", zap.String("dir", cfg.Models.Dir), zap.Error(err))
	}

	svc, err := detector.NewService(artifacts, detector.Options{SpamCacheSize: cfg.Cache.SpamSize})
	if err != nil {
		logger.Fatal("failed to build prediction service", zap.Error(err))
	}

	// 3. Optional prediction history
	var store *db.Store
	if cfg.Database.Path != "" {
		store, err = db.Open(cfg.Database.Path)
		if err != nil {
			logger.Fatal("failed to open database", zap.String("path", cfg.Database.Path), zap.Error(err))
		}
		defer store.Close()
		logger.Info("prediction history enabled", zap.String("path", cfg.Database.Path))
	}

	metrics := monitoring.NewMetrics()

	var hub *monitoring.Hub
	if cfg.Stream.Enabled {
		hub = monitoring.NewHub(cfg.Http.AllowedOrigins, logger.Named("stream"), metrics.SetStreamClients)
		go hub.Start()
		defer hub.Stop()
	}

	// 4. Start HTTP server
	handlers := chttp.NewHandlers(chttp.Deps{
		Service: svc,
		Metrics: metrics,
		Hub:     hub,
		Store:   store,
		Logger:  logger,
	})
	server := chttp.NewServer(cfg.Http, handlers)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}

	logger.Info("exiting")
}
