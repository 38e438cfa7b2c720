package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tunegrab/internal/catalog/spotify"
	"tunegrab/internal/config"
	"tunegrab/internal/download"
	"tunegrab/internal/history"
	"tunegrab/internal/job"
	"tunegrab/internal/library"
	"tunegrab/internal/logger"
	"tunegrab/internal/lyrics"
	"tunegrab/internal/match"
	"tunegrab/internal/source"
	"tunegrab/internal/source/ytapi"
	"tunegrab/internal/source/ytdlp"
	"tunegrab/internal/tag"
	"tunegrab/internal/web"
	"tunegrab/pkg/utils"
)

func main() {
	var (
		addr       string
		configPath string
	)
	flag.StringVar(&addr, "addr", "", "listen address (overrides config)")
	flag.StringVar(&configPath, "config", "", "config file path")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.ListenAddr = addr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	if err := ytdlp.CheckInstalled(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
	if err := utils.EnsureDir(cfg.DownloadDir); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}

	store, err := history.Open(filepath.Join(cfg.DownloadDir, "history.db"))
	if err != nil {
		log.Errorf("Failed to open download history: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalogClient := spotify.New(ctx, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret)
	sourceClient := ytdlp.New(cfg.OutputFormat, cfg.AudioQuality, log)

	tracker := job.NewTracker(cfg.JobRetention.Std())
	tracker.StartSweeper(ctx)

	orch := download.NewOrchestrator(download.Options{
		Catalog:      catalogClient,
		Searcher:     sourceClient,
		Fetcher:      sourceClient,
		Resolver:     source.Fallback{Primary: ytapi.New(), Secondary: sourceClient},
		Matcher:      match.New(cfg.ConfidenceThreshold, cfg.ConfidenceMargin),
		Tracker:      tracker,
		Tagger:       tag.NewApplier(lyrics.NewClient(), cfg.EmbedLyrics, log),
		Placer:       library.NewPlacer(cfg.LibraryDir, cfg.LibraryServer, log),
		History:      store,
		StageTimeout: cfg.StageTimeout.Std(),
		Logger:       log,
	})

	server := web.NewServer(catalogClient, orch, tracker, store, log)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Infof("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}
	log.Infof("Server stopped")
}
