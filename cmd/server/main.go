package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garnizeh/mockinterview/api"
	"github.com/garnizeh/mockinterview/db"
	"github.com/garnizeh/mockinterview/internal/ai"
	"github.com/garnizeh/mockinterview/internal/audio"
	"github.com/garnizeh/mockinterview/internal/config"
	dbpkg "github.com/garnizeh/mockinterview/internal/db"
	"github.com/garnizeh/mockinterview/internal/gateway"
	"github.com/garnizeh/mockinterview/internal/interview"
	"github.com/garnizeh/mockinterview/internal/repository/sqlite"
	"github.com/garnizeh/mockinterview/pkg/ollama"
	"github.com/garnizeh/mockinterview/pkg/speech"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger, closeLog := config.SetupLogger(cfg.LogFile, level)
	defer closeLog()
	slog.SetDefault(logger)
	api.SetLogger(logger)
	ai.SetLogger(logger)
	audio.SetLogger(logger)
	dbpkg.SetLogger(logger)
	interview.SetLogger(logger)
	ollama.SetLogger(logger)
	speech.SetLogger(logger)

	logger.Info("starting interview server", slog.String("version", version), slog.String("build_time", buildTime))

	ctx := context.Background()

	conn, err := dbpkg.New(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if cfg.MigrateOnStart {
		if err := dbpkg.Migrate(ctx, conn, db.Migrations, db.SeedFiles); err != nil {
			log.Fatalf("Failed to migrate DB: %v", err)
		}
	}
	store := sqlite.New(conn)

	llm, err := ollama.NewDefaultClient(cfg.Ollama)
	if err != nil {
		log.Fatalf("Failed to create ollama client: %v", err)
	}

	var (
		sp       gateway.Speech
		voice    *speech.Client
		checkers = []api.HealthCheck{{Name: "database", Check: conn.Ping}}
	)
	if cfg.Speech.Enabled {
		voice, err = speech.NewClient(cfg.Speech, nil)
		if err != nil {
			log.Fatalf("Failed to create speech client: %v", err)
		}
		sp = voice
	}
	gw := gateway.New(llm, sp, cfg.EngineConfig.Model)
	checkers = append(checkers, api.HealthCheck{Name: "model", Check: gw.CheckModel})
	if gw.SpeechEnabled() {
		checkers = append(checkers, api.HealthCheck{Name: "speech", Check: gw.CheckSpeech, Optional: true})
	}

	loader, err := ai.NewLoader(ctx, store)
	if err != nil {
		log.Fatalf("Failed to load evaluation schemas: %v", err)
	}
	evaluator := ai.NewEvaluator(gw, loader, ai.EvaluatorConfig{
		SchemaVersion: cfg.EngineConfig.SchemaVersion,
		Timeout:       cfg.EngineConfig.Timeout,
	})

	clips, err := audio.NewStore(cfg.AudioDir)
	if err != nil {
		log.Fatalf("Failed to prepare audio dir: %v", err)
	}

	svc := interview.New(store, gw, evaluator, cfg.EngineConfig.Flow, interview.WithAudioStore(clips))

	handler := api.SetupRoutes(cfg, version, buildTime, api.Deps{
		Store:     store,
		Interview: svc,
		Checks:    checkers,
		Audio:     clips.Handler(),
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("err", err))
	}

	_ = llm.Close()
	if voice != nil {
		voice.Close()
	}
	if err := conn.Close(); err != nil {
		logger.Error("error closing DB", slog.Any("err", err))
	}

	logger.Info("server exited")
}
