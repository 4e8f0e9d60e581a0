package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"docutor/internal/api/handlers"
	"docutor/internal/api/middleware"
	"docutor/internal/auth"
	"docutor/internal/config"
	"docutor/internal/document"
	"docutor/internal/embedding"
	"docutor/internal/llm"
	"docutor/internal/memory"
	"docutor/internal/queue"
	"docutor/internal/rag"
	"docutor/internal/vectorstore"
	"docutor/pkg/chunker"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	jwt   *auth.JWTMiddleware
	llmGW llm.Gateway

	// Memory is exposed so main can run the session janitor alongside the
	// HTTP server.
	Memory *memory.Store
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, gw llm.Gateway) *Router {
	return &Router{
		mux:    chi.NewRouter(),
		db:     db,
		redis:  rdb,
		cfg:    cfg,
		jwt:    auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
		llmGW:  gw,
		Memory: memory.NewStore(memory.NewPgTurnStore(db)),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Initialize services
	embedSvc := embedding.NewService(rt.llmGW, rt.cfg.Embedding.Model)
	index := vectorstore.NewPgVectorIndex(rt.db, embedSvc)
	docSvc := document.NewService(document.NewPgStore(rt.db), index, chunker.ChunkOptions{
		ChunkSize:    rt.cfg.Ingest.ChunkSize,
		ChunkOverlap: rt.cfg.Ingest.ChunkOverlap,
		Separator:    chunker.DefaultSeparator,
	})
	queueClient := queue.NewClient(rt.cfg.Redis)
	orchestrator := rag.NewOrchestrator(index, rt.Memory, rt.llmGW, rt.cfg.Chat.TopK, rt.cfg.Chat.HistoryK)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		docH := handlers.NewDocumentHandler(docSvc, queueClient, rt.cfg.Ingest.SpoolDir)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/", docH.List)
		})

		chatH := handlers.NewChatHandler(orchestrator, rt.Memory, rt.cfg.Chat.HistoryK)
		r.Post("/sessions", chatH.StartSession)
		r.Get("/sessions/{id}/history", chatH.History)
		r.Post("/query", chatH.Query)
	})

	return r
}
