package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deniz/checklens/internal/api"
	"github.com/deniz/checklens/internal/config"
	"github.com/deniz/checklens/internal/llm"
	"github.com/deniz/checklens/internal/logger"
	"github.com/deniz/checklens/internal/ocr"
	"github.com/deniz/checklens/internal/progress"
	"github.com/deniz/checklens/internal/prompts"
	"github.com/deniz/checklens/internal/repository"
	"github.com/deniz/checklens/internal/service"
	"github.com/deniz/checklens/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLog := logger.New(logger.DefaultConfig())
	logger.SetDefault(appLog)
	defer logger.Sync()

	// Initialize database (optional)
	var repo *repository.AnalysisRepository
	if cfg.Database.Enabled {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			appLog.WithError(err).Fatal("Failed to initialize database")
		}
		repo = repository.NewAnalysisRepository(db)
		appLog.WithField("driver", cfg.Database.Driver).Info("Analysis archive enabled")
	}

	// Initialize object storage (optional)
	var objects storage.ObjectStorage
	if cfg.Storage.Enabled {
		s3, err := storage.NewS3Storage(&cfg.Storage)
		if err != nil {
			appLog.WithError(err).Fatal("Failed to initialize storage")
		}
		if err := s3.EnsureBucket(context.Background()); err != nil {
			appLog.WithError(err).Fatal("Failed to ensure storage bucket")
		}
		objects = s3
		appLog.WithField("bucket", cfg.Storage.Bucket).Info("Check image archive enabled")
	}

	// Model-serving client
	client := llm.NewClient(&llm.ClientConfig{
		BaseURL:         cfg.Ollama.BaseURL,
		GenerateTimeout: cfg.Ollama.GenerateTimeout,
		ListTimeout:     cfg.Ollama.ListTimeout,
	})

	// OCR engines
	engines := buildEngines(cfg)
	if len(engines) == 0 {
		appLog.Fatal("No OCR engines configured")
	}
	for _, e := range engines {
		appLog.WithField(logger.FieldEngine, e.Name()).Info("OCR engine registered")
	}

	// Prompt template
	template := prompts.CheckAnalysisPrompt
	if cfg.Prompt.Path != "" {
		template, err = prompts.LoadTemplate(cfg.Prompt.Path)
		if err != nil {
			appLog.WithError(err).Fatal("Failed to load prompt template")
		}
		appLog.WithField("path", cfg.Prompt.Path).Info("Using prompt template override")
	}

	// Progress store with optional TTL eviction
	store := progress.NewStore()
	if cfg.Session.TTL > 0 {
		store.StartJanitor(cfg.Session.TTL, cfg.Session.SweepInterval)
		defer store.Close()
	}

	analysis := service.NewAnalysisService(
		store,
		client,
		engines,
		template,
		cfg.Ollama.ExtraDenylist,
		repo,
		objects,
	)

	router := api.SetupRouter(cfg, appLog, analysis, client, repo)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLog.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Fatal("Server forced to shutdown")
	}

	appLog.Info("Server exited")
}

// buildEngines assembles the OCR engine list from configuration. Remote
// engines are skipped when their URL is not set.
func buildEngines(cfg *config.Config) []ocr.Engine {
	var engines []ocr.Engine
	if cfg.OCR.Tesseract {
		engines = append(engines, ocr.NewTesseractEngine(cfg.OCR.Languages))
	}
	if cfg.OCR.EasyOCRURL != "" {
		engines = append(engines, ocr.NewRemoteEngine("easyocr", cfg.OCR.EasyOCRURL, cfg.OCR.Languages, cfg.OCR.Timeout))
	}
	if cfg.OCR.PaddleOCRURL != "" {
		engines = append(engines, ocr.NewRemoteEngine("paddleocr", cfg.OCR.PaddleOCRURL, cfg.OCR.Languages, cfg.OCR.Timeout))
	}
	return engines
}
