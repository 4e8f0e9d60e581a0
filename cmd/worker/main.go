package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"docutor/internal/config"
	"docutor/internal/database"
	"docutor/internal/document"
	"docutor/internal/embedding"
	"docutor/internal/ingestlock"
	"docutor/internal/llm"
	"docutor/internal/queue"
	"docutor/internal/queue/workers"
	"docutor/internal/vectorstore"
	"docutor/pkg/chunker"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	gateway, err := llm.NewGateway(cfg.LLM, cfg.Embedding)
	if err != nil {
		slog.Error("provider setup failed", "error", err)
		os.Exit(1)
	}

	embedSvc := embedding.NewService(gateway, cfg.Embedding.Model)
	index := vectorstore.NewPgVectorIndex(db, embedSvc)
	docSvc := document.NewService(document.NewPgStore(db), index, chunker.ChunkOptions{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		Separator:    chunker.DefaultSeparator,
	})
	lock := ingestlock.New(rdb, 10*time.Minute)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	ingestWorker := workers.NewIngestWorker(docSvc, lock)
	mux := queue.NewMux(asynq.HandlerFunc(ingestWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(mux); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
