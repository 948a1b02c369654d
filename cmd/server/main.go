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

	"proctor-backend/internal/config"
	"proctor-backend/internal/database"
	"proctor-backend/internal/handlers"
	"proctor-backend/internal/middleware"
	"proctor-backend/internal/repository"
	"proctor-backend/internal/router"
	"proctor-backend/internal/services"
	"proctor-backend/internal/websocket"
	"proctor-backend/internal/worker"
)

func main() {
	log.Println("Starting proctoring backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	examRepo := repository.NewExamRepo(pool)
	cheatingRepo := repository.NewCheatingRepo(pool)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, redisClients.Jobs, jwtAuth)
	examService := services.NewExamService(examRepo, cheatingRepo, cfg.InferenceURL)
	analyzer := services.NewAnalyzerService(cfg.InferenceURL,
		time.Duration(cfg.InferenceTimeoutSeconds)*time.Second)

	blobStore, err := services.NewBlobStore(context.Background(),
		cfg.StorageType, cfg.S3Bucket, cfg.S3Region, cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		log.Fatalf("✗ Blob store initialization failed: %v", err)
	}
	log.Printf("✓ Blob store ready (%s)", cfg.StorageType)

	// ──── Step 5: Start Evidence Worker Pool ────
	evidencePool := worker.NewPool(redisClients.Jobs, cheatingRepo, blobStore, cfg.EvidenceWorkers)
	evidencePool.Start()
	log.Printf("✓ Evidence pipeline started (%d workers)", cfg.EvidenceWorkers)

	// ──── Step 6: Start Exam Sweeper ────
	sweeper := services.NewSweeper(examService,
		time.Duration(cfg.SweepIntervalSeconds)*time.Second)
	sweeper.Start()
	log.Println("✓ Exam sweeper started")

	// ──── Step 7: Start WebSocket Hub ────
	relay := websocket.NewFrameRelay(analyzer, worker.NewQueue(redisClients.Jobs))
	wsHub := websocket.NewHub(relay, jwtAuth, redisClients.PubSub)
	log.Println("✓ WebSocket hub started")

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	examHandler := handlers.NewExamHandler(examService)

	// ──── Step 8: Start HTTP Server ────
	r := router.New(jwtAuth, authHandler, examHandler, wsHub)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		sweeper.Stop()
		evidencePool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Proctoring backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
