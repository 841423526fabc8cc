// Package bootstrap wires the pipeline's dependencies for the api, worker
// and loader commands.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/amoralesc/faq-assistant/internal/cache"
	"github.com/amoralesc/faq-assistant/internal/config"
	"github.com/amoralesc/faq-assistant/internal/core/usecase"
	"github.com/amoralesc/faq-assistant/internal/infrastructure/embedding/ollama"
	"github.com/amoralesc/faq-assistant/internal/infrastructure/llm/openai"
	"github.com/amoralesc/faq-assistant/internal/infrastructure/queue/nats"
	"github.com/amoralesc/faq-assistant/internal/infrastructure/repository/postgres"
	"github.com/amoralesc/faq-assistant/internal/infrastructure/resilience"
	"github.com/amoralesc/faq-assistant/internal/infrastructure/vector/qdrant"
	"github.com/amoralesc/faq-assistant/internal/memory"
)

type App struct {
	Config config.Config

	Answers  *usecase.AnswerUseCase
	Cache    *cache.Cache
	Sessions *memory.Store
	Queue    *nats.Queue

	Embedder      *ollama.Client
	VectorDB      *qdrant.Client
	KnowledgeRepo *postgres.KnowledgeRepository
	AnalyticsRepo *postgres.AnalyticsRepository

	db      *sql.DB
	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	knowledgeRepo := postgres.NewKnowledgeRepository(db)
	if err := knowledgeRepo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure knowledge schema: %w", err)
	}
	analyticsRepo := postgres.NewAnalyticsRepository(db)
	if err := analyticsRepo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure analytics schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	embedder := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, executor)
	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor)

	generator, err := openai.NewGenerator(openai.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		Temperature: float32(cfg.OpenAITemperature),
		MaxTokens:   cfg.OpenAIMaxTokens,
	}, executor)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init generator: %w", err)
	}

	semanticCache := cache.New(cache.Config{
		TTL:       cfg.CacheTTL,
		Capacity:  cfg.CacheCapacity,
		Threshold: cfg.CacheThreshold,
	})
	sessions := memory.NewStore(memory.Config{
		TTL:        cfg.SessionTTL,
		MaxTurns:   cfg.SessionMaxTurns,
		RecentSpan: cfg.RecentTurns,
	})

	answers := usecase.NewAnswerUseCase(embedder, vectorDB, generator, semanticCache, sessions, queue, usecase.Config{
		GlobalThreshold: cfg.GlobalThreshold,
		MaxContextChars: cfg.MaxContextChars,
		AnswerMaxChars:  cfg.AnswerMaxChars,
		EscalateAfter:   cfg.EscalateAfter,
		RecentTurns:     cfg.RecentTurns,
		MaxMessageChars: cfg.MaxMessageChars,
	})

	return &App{
		Config: cfg,

		Answers:  answers,
		Cache:    semanticCache,
		Sessions: sessions,
		Queue:    queue,

		Embedder:      embedder,
		VectorDB:      vectorDB,
		KnowledgeRepo: knowledgeRepo,
		AnalyticsRepo: analyticsRepo,

		db: db,
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// StartSweepers evicts expired cache entries and idle sessions on a timer
// until ctx is done.
func (a *App) StartSweepers(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.Cache.SweepExpired()
				a.Sessions.SweepExpired()
			}
		}
	}()
}

// Ready reports whether the backing services are reachable. The health
// endpoint turns a non-nil error into a degraded status.
func (a *App) Ready(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	if !a.Queue.Connected() {
		return fmt.Errorf("nats disconnected")
	}
	return nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
