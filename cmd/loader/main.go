// The loader command reads a FAQ knowledge-base file (YAML or XLSX),
// persists the entries to Postgres, embeds the questions and indexes them
// in the vector store.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amoralesc/faq-assistant/internal/config"
	"github.com/amoralesc/faq-assistant/internal/infrastructure/embedding/ollama"
	"github.com/amoralesc/faq-assistant/internal/infrastructure/kbload"
	"github.com/amoralesc/faq-assistant/internal/infrastructure/repository/postgres"
	"github.com/amoralesc/faq-assistant/internal/infrastructure/resilience"
	"github.com/amoralesc/faq-assistant/internal/infrastructure/vector/qdrant"
	"github.com/amoralesc/faq-assistant/internal/observability/logging"
)

const embedBatchSize = 20

func main() {
	path := flag.String("file", "", "path to the knowledge base file (.yaml, .yml or .xlsx)")
	flag.Parse()

	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("loader", cfg.LogLevel))

	if *path == "" {
		slog.Error("missing_file_flag")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	entries, err := kbload.Load(*path)
	if err != nil {
		slog.Error("load_failed", "file", *path, "error", err)
		os.Exit(1)
	}
	slog.Info("knowledge_base_parsed", "file", *path, "entries", len(entries))

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		slog.Error("open_postgres_failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := postgres.NewKnowledgeRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		slog.Error("ensure_schema_failed", "error", err)
		os.Exit(1)
	}
	if err := repo.UpsertEntries(ctx, entries); err != nil {
		slog.Error("upsert_failed", "error", err)
		os.Exit(1)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	embedder := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, executor)
	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor)

	start := time.Now()
	for offset := 0; offset < len(entries); offset += embedBatchSize {
		end := offset + embedBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[offset:end]

		questions := make([]string, len(batch))
		for i, entry := range batch {
			questions[i] = entry.Question
		}

		vectors, err := embedder.Embed(ctx, questions)
		if err != nil {
			slog.Error("embed_failed", "offset", offset, "error", err)
			os.Exit(1)
		}
		if err := vectorDB.IndexEntries(ctx, batch, vectors); err != nil {
			slog.Error("index_failed", "offset", offset, "error", err)
			os.Exit(1)
		}
		slog.Info("batch_indexed", "from", offset, "to", end)
	}

	count, err := repo.CountActive(ctx)
	if err != nil {
		slog.Error("count_failed", "error", err)
		os.Exit(1)
	}
	slog.Info("knowledge_base_loaded",
		"entries", len(entries),
		"active_total", count,
		"duration", time.Since(start),
	)
}
