package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amoralesc/faq-assistant/internal/core/classify"
	"github.com/amoralesc/faq-assistant/internal/core/domain"
	"github.com/amoralesc/faq-assistant/internal/core/ports"
	"github.com/amoralesc/faq-assistant/internal/memory"
)

type Config struct {
	GlobalThreshold  float64
	MaxContextChars  int
	AnswerMaxChars   int
	EscalateAfter    int
	RecentTurns      int
	MaxMessageChars  int
	AnalyticsTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		GlobalThreshold:  0.7,
		MaxContextChars:  3000,
		AnswerMaxChars:   2000,
		EscalateAfter:    2,
		RecentTurns:      3,
		MaxMessageChars:  4000,
		AnalyticsTimeout: 5 * time.Second,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()
	if out.GlobalThreshold <= 0 || out.GlobalThreshold > 1 {
		out.GlobalThreshold = def.GlobalThreshold
	}
	if out.MaxContextChars <= 0 {
		out.MaxContextChars = def.MaxContextChars
	}
	if out.AnswerMaxChars <= 0 {
		out.AnswerMaxChars = def.AnswerMaxChars
	}
	if out.EscalateAfter <= 0 {
		out.EscalateAfter = def.EscalateAfter
	}
	if out.RecentTurns <= 0 {
		out.RecentTurns = def.RecentTurns
	}
	if out.MaxMessageChars <= 0 {
		out.MaxMessageChars = def.MaxMessageChars
	}
	if out.AnalyticsTimeout <= 0 {
		out.AnalyticsTimeout = def.AnalyticsTimeout
	}
	return out
}

// AnswerUseCase sequences the retrieval-augmented pipeline:
// classify -> resolve -> embed -> cache lookup -> search -> assemble ->
// generate -> post-process -> cache write -> memory update -> analytics.
type AnswerUseCase struct {
	embedder  ports.Embedder
	searcher  ports.KnowledgeSearcher
	generator ports.AnswerGenerator
	cache     ports.SemanticCache
	sessions  ports.ConversationMemory
	analytics ports.AnalyticsSink
	cfg       Config
	now       func() time.Time
}

func NewAnswerUseCase(
	embedder ports.Embedder,
	searcher ports.KnowledgeSearcher,
	generator ports.AnswerGenerator,
	cache ports.SemanticCache,
	sessions ports.ConversationMemory,
	analytics ports.AnalyticsSink,
	cfg Config,
) *AnswerUseCase {
	return &AnswerUseCase{
		embedder:  embedder,
		searcher:  searcher,
		generator: generator,
		cache:     cache,
		sessions:  sessions,
		analytics: analytics,
		cfg:       cfg.normalize(),
		now:       time.Now,
	}
}

// Ask runs the pipeline for one question and returns the final answer.
func (uc *AnswerUseCase) Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error) {
	return uc.run(ctx, req, nil)
}

// AskStream runs the same pipeline but forwards generation chunks through
// onChunk as they arrive. Cache hits are forwarded as a single chunk.
func (uc *AnswerUseCase) AskStream(ctx context.Context, req domain.AskRequest, onChunk func(text string) error) (*domain.Answer, error) {
	if onChunk == nil {
		return uc.run(ctx, req, nil)
	}
	return uc.run(ctx, req, onChunk)
}

func (uc *AnswerUseCase) run(ctx context.Context, req domain.AskRequest, onChunk func(string) error) (*domain.Answer, error) {
	start := uc.now()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate message", fmt.Errorf("message is empty"))
	}
	if len([]rune(message)) > uc.cfg.MaxMessageChars {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate message",
			fmt.Errorf("message exceeds %d characters", uc.cfg.MaxMessageChars))
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	queryType := classify.Classify(message)

	resolved := message
	if classify.NeedsResolution(queryType) {
		turns := uc.sessions.Recent(sessionID, uc.cfg.RecentTurns)
		if rewritten, ok := memory.Resolve(message, turns); ok {
			slog.Info("query_resolved",
				"session_id", sessionID,
				"original", truncateLog(message),
				"resolved", truncateLog(rewritten),
			)
			resolved = rewritten
		}
	}

	embedding, err := uc.embedder.EmbedQuery(ctx, resolved)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUpstream, "embed query", err)
	}

	if cached, ok := uc.cache.Lookup(resolved, embedding); ok {
		answer := uc.answerFromCache(sessionID, cached, start)
		if onChunk != nil {
			if err := onChunk(answer.Text); err != nil {
				return nil, fmt.Errorf("forward cached chunk: %w", err)
			}
		}
		meta := domain.TurnMetadata{QueryType: queryType}
		if len(answer.Sources) > 0 {
			meta.Category = answer.Sources[0].Category
			meta.Topic = answer.Sources[0].Question
		}
		uc.recordTurns(sessionID, message, answer.Text, queryType, meta)
		uc.emitAnalytics(resolved, sessionID, queryType, answer, start)
		return answer, nil
	}

	params := classify.ParamsFor(queryType)
	results, err := uc.searcher.Search(ctx, embedding, params.TopK, params.Threshold)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUpstream, "search knowledge", err)
	}

	failureCount := uc.sessions.ConsecutiveFailures(sessionID)
	block := AssembleContext(results, resolved, failureCount, uc.cfg.MaxContextChars, uc.cfg.EscalateAfter)

	var generation domain.Generation
	if onChunk != nil {
		generation, err = uc.generator.GenerateStream(ctx, block.SystemPrompt, block.Text, onChunk)
	} else {
		generation, err = uc.generator.Generate(ctx, block.SystemPrompt, block.Text)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrUpstream, "generate answer", err)
	}

	text := TruncateAtSentence(generation.Text, uc.cfg.AnswerMaxChars)
	hasGoodContext := len(results) > 0 && results[0].Similarity >= uc.cfg.GlobalThreshold

	sources := make([]domain.SourceRef, 0, len(results))
	for _, result := range results {
		sources = append(sources, result.SourceRef())
	}

	topSimilarity := 0.0
	if len(results) > 0 {
		topSimilarity = results[0].Similarity
	}

	answer := &domain.Answer{
		Text:      text,
		SessionID: sessionID,
		Sources:   sources,
		Metadata: domain.AnswerMetadata{
			Duration:      uc.now().Sub(start),
			DurationMs:    uc.now().Sub(start).Milliseconds(),
			FAQsCount:     len(results),
			TopSimilarity: topSimilarity,
			QueryType:     queryType,
			FromCache:     false,
			Model:         generation.ModelID,
			TokensUsed:    generation.TokensUsed,
		},
	}

	if hasGoodContext {
		uc.cache.Store(resolved, embedding, domain.CachedAnswer{
			Text:      text,
			Sources:   sources,
			QueryType: queryType,
			Model:     generation.ModelID,
		})
	}

	meta := domain.TurnMetadata{
		QueryType: queryType,
		NoContext: !hasGoodContext,
	}
	if len(results) > 0 {
		meta.Category = results[0].Category
		meta.Topic = topicFor(results[0])
	}
	uc.recordTurns(sessionID, message, text, queryType, meta)
	uc.emitAnalytics(resolved, sessionID, queryType, answer, start)

	return answer, nil
}

// topicFor picks the entity a follow-up would refer to: the entry's first
// keyword when present, otherwise its question.
func topicFor(result domain.RetrievedEntry) string {
	if len(result.Keywords) > 0 {
		return result.Keywords[0]
	}
	return result.Question
}

func (uc *AnswerUseCase) answerFromCache(sessionID string, cached *domain.CachedAnswer, start time.Time) *domain.Answer {
	topSimilarity := 0.0
	if len(cached.Sources) > 0 {
		topSimilarity = cached.Sources[0].Similarity
	}
	return &domain.Answer{
		Text:      cached.Text,
		SessionID: sessionID,
		Sources:   cached.Sources,
		Metadata: domain.AnswerMetadata{
			Duration:      uc.now().Sub(start),
			DurationMs:    uc.now().Sub(start).Milliseconds(),
			FAQsCount:     len(cached.Sources),
			TopSimilarity: topSimilarity,
			QueryType:     cached.QueryType,
			FromCache:     true,
			Model:         cached.Model,
		},
	}
}

// recordTurns appends the user and assistant turns after the exchange. The
// assistant turn carries the topic metadata the resolver reads on follow-ups.
func (uc *AnswerUseCase) recordTurns(sessionID, question, answer string, queryType domain.QueryType, meta domain.TurnMetadata) {
	uc.sessions.Append(sessionID, domain.RoleUser, question, domain.TurnMetadata{
		QueryType: queryType,
	})
	uc.sessions.Append(sessionID, domain.RoleAssistant, answer, meta)
}

// emitAnalytics is fire-and-forget: its own context, its own deadline, and
// any error logged and swallowed. It must never delay or fail the response.
func (uc *AnswerUseCase) emitAnalytics(query, sessionID string, queryType domain.QueryType, answer *domain.Answer, start time.Time) {
	event := domain.AnalyticsEvent{
		ID:        uuid.NewString(),
		Query:     query,
		SessionID: sessionID,
		QueryType: queryType,
		LatencyMs: uc.now().Sub(start).Milliseconds(),
		FromCache: answer.Metadata.FromCache,
		CreatedAt: uc.now().UTC(),
	}
	for _, source := range answer.Sources {
		event.MatchedIDs = append(event.MatchedIDs, source.ID)
		event.SimilarityScores = append(event.SimilarityScores, source.Similarity)
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("analytics_panic", "recovered", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), uc.cfg.AnalyticsTimeout)
		defer cancel()
		if err := uc.analytics.Record(ctx, event); err != nil {
			slog.Warn("analytics_record_failed", "error", err, "session_id", sessionID)
		}
	}()
}

func truncateLog(s string) string {
	const max = 100
	if len(s) <= max {
		return s
	}
	return s[:max]
}
