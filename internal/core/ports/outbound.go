package ports

import (
	"context"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
)

// Embedder builds vectors for knowledge entries and query text. The vector
// dimensionality is whatever the provider returns; callers must not assume it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// KnowledgeSearcher performs nearest-neighbor search over active entries.
// Results come back ordered by descending similarity, limited to limit and
// filtered to similarity >= threshold. An empty result is not an error.
type KnowledgeSearcher interface {
	Search(ctx context.Context, queryVector []float32, limit int, threshold float64) ([]domain.RetrievedEntry, error)
}

// KnowledgeIndexer writes entry vectors into the knowledge store (loader side).
type KnowledgeIndexer interface {
	IndexEntries(ctx context.Context, entries []domain.KnowledgeEntry, vectors [][]float32) error
}

// AnswerGenerator creates the final user-facing answer from an assembled
// context block. The streaming variant forwards chunks as they arrive.
type AnswerGenerator interface {
	Generate(ctx context.Context, systemPrompt, contextBlock string) (domain.Generation, error)
	GenerateStream(ctx context.Context, systemPrompt, contextBlock string, onChunk func(text string) error) (domain.Generation, error)
}

// SemanticCache short-circuits retrieval and generation for near-duplicate
// questions. Implementations must never fail the request: faults are logged
// internally and surface as a miss.
type SemanticCache interface {
	Lookup(rawQuery string, embedding []float32) (*domain.CachedAnswer, bool)
	Store(rawQuery string, embedding []float32, payload domain.CachedAnswer)
}

// ConversationMemory is the per-session rolling window of recent turns.
type ConversationMemory interface {
	Recent(sessionID string, n int) []domain.Turn
	Append(sessionID, role, text string, meta domain.TurnMetadata)
	ConsecutiveFailures(sessionID string) int
}

// AnalyticsSink records a query event. Callers treat it as fire-and-forget.
type AnalyticsSink interface {
	Record(ctx context.Context, event domain.AnalyticsEvent) error
}

// KnowledgeRepository persists entry rows alongside the vector index.
type KnowledgeRepository interface {
	UpsertEntries(ctx context.Context, entries []domain.KnowledgeEntry) error
	CountActive(ctx context.Context) (int, error)
}

// AnalyticsRepository persists analytics events consumed from the queue.
type AnalyticsRepository interface {
	InsertEvent(ctx context.Context, event domain.AnalyticsEvent) error
}
