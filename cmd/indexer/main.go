package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studypath-backend/internal/config"
	"studypath-backend/internal/database"
	"studypath-backend/internal/embedding"
	"studypath-backend/internal/pipeline"
	"studypath-backend/internal/repository"
	"studypath-backend/internal/services"
	"studypath-backend/internal/vectorstore"
	"studypath-backend/internal/worker"
)

// Standalone indexing process. Runs the same worker pool as the API server,
// for deployments that separate serving from ingestion.
func main() {
	log.Println("Starting StudyPath Indexer...")

	cfg := config.Load()

	pool, err := database.NewPostgresPool(cfg.DatabaseURL, "studypath-indexer", 8)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()

	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClient.Close()

	store, err := vectorstore.NewStore(cfg.QdrantHost, cfg.QdrantPort, cfg.CollectionName, cfg.EmbeddingDim)
	if err != nil {
		log.Fatalf("✗ Qdrant connection failed: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := store.EnsureCollection(ctx); err != nil {
		log.Fatalf("✗ Could not ensure Qdrant collection: %v", err)
	}
	cancel()

	embedder, err := embedding.NewService(cfg.OllamaHost, cfg.EmbeddingModel, cfg.EmbeddingDim)
	if err != nil {
		log.Fatalf("✗ Ollama client initialization failed: %v", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := embedder.Ping(pingCtx); err != nil {
		log.Printf("WARNING: Ollama not reachable yet: %v", err)
	}
	pingCancel()

	videoRepo := repository.NewVideoRepo(pool)
	youtubeService := services.NewYouTubeService()
	indexer := pipeline.NewIndexer(youtubeService, embedder, store, cfg.ChunkMinutes, cfg.MinChunkLength)

	workerPool := worker.NewPool(redisClient, indexer, videoRepo, cfg.WorkerCount)
	workerPool.Start()
	if err := workerPool.RecoverPending(context.Background()); err != nil {
		log.Printf("WARNING: pending task recovery failed: %v", err)
	}
	log.Printf("✓ Indexer running with %d workers", cfg.WorkerCount)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	workerPool.Stop()
}
