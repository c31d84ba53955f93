package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/velocityfibre/fibrefield/internal/ai"
	"github.com/velocityfibre/fibrefield/internal/approval"
	"github.com/velocityfibre/fibrefield/internal/capture"
	"github.com/velocityfibre/fibrefield/internal/config"
	"github.com/velocityfibre/fibrefield/internal/database"
	"github.com/velocityfibre/fibrefield/internal/fieldops"
	"github.com/velocityfibre/fibrefield/internal/handlers"
	"github.com/velocityfibre/fibrefield/internal/models"
	"github.com/velocityfibre/fibrefield/internal/stats"
	"github.com/velocityfibre/fibrefield/internal/storage"
	"github.com/velocityfibre/fibrefield/internal/sync"
	"github.com/velocityfibre/fibrefield/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema (Critical for Zero-Config)
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.UserAuth{},
		&models.AppSetting{},
		&models.Pole{},
		&models.Assignment{},
		&models.Capture{},
		&models.Photo{},
		&models.SyncQueueItem{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Photo blob storage (MinIO when configured, local directory otherwise)
	blobs, err := storage.Open(context.Background(), cfg.Photos)
	if err != nil {
		log.Fatalf("Failed to open photo storage: %v", err)
	}

	// 5. Domain services
	captures := capture.NewService(db, cfg.GPS, cfg.AutosaveInterval)
	photos := capture.NewPhotoManager(captures, blobs, models.DefaultRequiredPhotoTypes())
	approvals := approval.NewService(db, captures, photos, cfg.GPS)
	statistics := stats.NewService(db)

	// 6. Sync outbox + drain engine
	queue := sync.NewQueue(db, cfg.Sync.MaxRetries)
	remote := sync.NewRemoteClient(cfg.Sync.RemoteURL)
	engine := sync.NewEngine(db, queue, remote, cfg.Sync)

	if cfg.Sync.Enabled && cfg.Sync.RemoteURL != "" {
		if err := engine.Start(); err != nil {
			log.Printf("⚠️ Sync Engine: Failed to start: %v", err)
		} else {
			log.Println("✅ Sync Engine: Started successfully")
		}
	} else {
		log.Println("📴 Sync Engine: disabled (no remote configured)")
	}

	// 7. Dashboard websocket hub
	hub := websocket.NewHub()
	go hub.Run()

	// 8. Orchestrator façade
	ops := fieldops.New(captures, photos, approvals, statistics, queue, hub)

	// 9. Optional Gemini rejection-feedback writer
	var feedback *ai.FeedbackWriter
	if cfg.AI.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiClient(context.Background(), cfg.AI.GeminiAPIKey, cfg.AI.GeminiModel)
		if err != nil {
			log.Printf("⚠️ AI: Gemini unavailable, using template feedback: %v", err)
			feedback = ai.NewFeedbackWriter(nil)
		} else {
			defer gemini.Close()
			feedback = ai.NewFeedbackWriter(gemini)
		}
	} else {
		feedback = ai.NewFeedbackWriter(nil)
	}

	// 10. HTTP router
	router := handlers.NewRouter(db, ops, engine, hub, feedback, cfg)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 FibreField server starting on port %s\n", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	// Create context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Stop the drain engine (waits for the loop to exit)
	engine.Stop()

	// Stop capture autosave heartbeats
	captures.Autosaver().StopAll()

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
