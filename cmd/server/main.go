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

	"studypath-backend/internal/config"
	"studypath-backend/internal/database"
	"studypath-backend/internal/embedding"
	"studypath-backend/internal/handlers"
	"studypath-backend/internal/middleware"
	"studypath-backend/internal/repository"
	"studypath-backend/internal/router"
	"studypath-backend/internal/services"
	"studypath-backend/internal/vectorstore"
)

func main() {
	log.Println("Starting StudyPath Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL, "studypath-api", 25)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Client ────
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	questionRepo := repository.NewQuestionRepo(pool)
	attemptRepo := repository.NewAttemptRepo(pool)
	videoRepo := repository.NewVideoRepo(pool)

	// ──── Step 5: Initialize Vector Store ────
	store, err := vectorstore.NewStore(cfg.QdrantHost, cfg.QdrantPort, cfg.CollectionName, cfg.EmbeddingDim)
	if err != nil {
		log.Fatalf("✗ Qdrant connection failed: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := store.EnsureCollection(ctx); err != nil {
		log.Printf("WARNING: could not ensure Qdrant collection: %v", err)
	}
	cancel()
	log.Printf("✓ Qdrant connected (collection %s)", cfg.CollectionName)

	// ──── Step 6: Initialize Embedding Service ────
	embedder, err := embedding.NewService(cfg.OllamaHost, cfg.EmbeddingModel, cfg.EmbeddingDim)
	if err != nil {
		log.Fatalf("✗ Ollama client initialization failed: %v", err)
	}
	log.Printf("✓ Embedding service ready (%s, %d dims)", cfg.EmbeddingModel, cfg.EmbeddingDim)

	// ──── Step 7: Initialize Gemini Coach ────
	coach, err := services.NewCoachService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer coach.Close()
	log.Println("✓ Gemini coach initialized")

	// ──── Initialize Engines ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	classifier := services.NewClassifier(cfg.ClusterModelPath)
	diagnosis := services.NewDiagnosisEngine(classifier, coach)
	retrieval := services.NewRetrievalEngine(embedder, store, cfg.SearchFetchLimit, cfg.MaxResults)

	// ──── Initialize Handlers ────
	quizHandler := handlers.NewQuizHandler(questionRepo, attemptRepo, diagnosis, retrieval)
	searchHandler := handlers.NewSearchHandler(retrieval, coach, store)
	indexHandler := handlers.NewIndexHandler(videoRepo, redisClient)

	// ──── Step 8: Start HTTP Server ────
	// Indexing runs in the separate cmd/indexer process; this process only
	// enqueues tasks.
	r := router.New(jwtAuth, quizHandler, searchHandler, indexHandler, cfg.FrontendURL)

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

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("✓ StudyPath Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
