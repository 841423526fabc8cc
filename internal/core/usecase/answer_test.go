package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
)

type embedderFake struct {
	lastQuery string
	vector    []float32
	err       error
}

func (f *embedderFake) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }
func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.lastQuery = text
	if f.err != nil {
		return nil, f.err
	}
	if f.vector == nil {
		return []float32{0.1, 0.2, 0.3}, nil
	}
	return f.vector, nil
}

type searcherFake struct {
	limit     int
	threshold float64
	results   []domain.RetrievedEntry
	err       error
}

func (f *searcherFake) Search(_ context.Context, _ []float32, limit int, threshold float64) ([]domain.RetrievedEntry, error) {
	f.limit = limit
	f.threshold = threshold
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type generatorFake struct {
	systemPrompt string
	contextBlock string
	text         string
	err          error
}

func (f *generatorFake) Generate(_ context.Context, systemPrompt, contextBlock string) (domain.Generation, error) {
	f.systemPrompt = systemPrompt
	f.contextBlock = contextBlock
	if f.err != nil {
		return domain.Generation{}, f.err
	}
	return domain.Generation{Text: f.text, ModelID: "test-model", TokensUsed: 42}, nil
}

func (f *generatorFake) GenerateStream(ctx context.Context, systemPrompt, contextBlock string, onChunk func(string) error) (domain.Generation, error) {
	gen, err := f.Generate(ctx, systemPrompt, contextBlock)
	if err != nil {
		return domain.Generation{}, err
	}
	for _, part := range strings.SplitAfter(gen.Text, " ") {
		if err := onChunk(part); err != nil {
			return domain.Generation{}, err
		}
	}
	return gen, nil
}

type cacheFake struct {
	hit       *domain.CachedAnswer
	storedKey string
	stored    *domain.CachedAnswer
}

func (f *cacheFake) Lookup(string, []float32) (*domain.CachedAnswer, bool) {
	if f.hit == nil {
		return nil, false
	}
	return f.hit, true
}

func (f *cacheFake) Store(rawQuery string, _ []float32, payload domain.CachedAnswer) {
	f.storedKey = rawQuery
	f.stored = &payload
}

type memoryFake struct {
	mu       sync.Mutex
	turns    map[string][]domain.Turn
	failures int
}

func newMemoryFake() *memoryFake {
	return &memoryFake{turns: map[string][]domain.Turn{}}
}

func (f *memoryFake) Recent(sessionID string, n int) []domain.Turn {
	f.mu.Lock()
	defer f.mu.Unlock()
	turns := f.turns[sessionID]
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns
}

func (f *memoryFake) Append(sessionID, role, text string, meta domain.TurnMetadata) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns[sessionID] = append(f.turns[sessionID], domain.Turn{Role: role, Text: text, Metadata: meta})
}

func (f *memoryFake) ConsecutiveFailures(string) int { return f.failures }

type analyticsFake struct {
	events chan domain.AnalyticsEvent
	err    error
}

func newAnalyticsFake() *analyticsFake {
	return &analyticsFake{events: make(chan domain.AnalyticsEvent, 4)}
}

func (f *analyticsFake) Record(_ context.Context, event domain.AnalyticsEvent) error {
	f.events <- event
	return f.err
}

type pipeline struct {
	embedder  *embedderFake
	searcher  *searcherFake
	generator *generatorFake
	cache     *cacheFake
	memory    *memoryFake
	analytics *analyticsFake
	uc        *AnswerUseCase
}

func newPipeline() *pipeline {
	p := &pipeline{
		embedder:  &embedderFake{},
		searcher:  &searcherFake{},
		generator: &generatorFake{text: "respuesta generada."},
		cache:     &cacheFake{},
		memory:    newMemoryFake(),
		analytics: newAnalyticsFake(),
	}
	p.uc = NewAnswerUseCase(p.embedder, p.searcher, p.generator, p.cache, p.memory, p.analytics, Config{})
	return p
}

func waitForEvent(t *testing.T, f *analyticsFake) domain.AnalyticsEvent {
	t.Helper()
	select {
	case event := <-f.events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("analytics event never emitted")
		return domain.AnalyticsEvent{}
	}
}

func TestAskGroundedAnswer(t *testing.T) {
	p := newPipeline()
	p.searcher.results = []domain.RetrievedEntry{{
		ID:         "faq-1",
		Question:   "¿Cuándo son las inscripciones?",
		Answer:     "Las inscripciones abren en septiembre.",
		Category:   "admisiones",
		Similarity: 0.92,
	}}

	answer, err := p.uc.Ask(context.Background(), domain.AskRequest{Message: "¿cuándo son las inscripciones?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if answer.Metadata.FromCache {
		t.Fatal("expected fromCache=false")
	}
	if answer.Metadata.FAQsCount != 1 {
		t.Fatalf("faqsCount = %d, want 1", answer.Metadata.FAQsCount)
	}
	if answer.Metadata.TopSimilarity != 0.92 {
		t.Fatalf("topSimilarity = %f, want 0.92", answer.Metadata.TopSimilarity)
	}
	if answer.SessionID == "" {
		t.Fatal("session id should be generated when absent")
	}
	if !strings.Contains(p.generator.contextBlock, "Las inscripciones abren en septiembre.") {
		t.Fatal("context block does not contain the retrieved entry")
	}
	if p.cache.stored == nil {
		t.Fatal("grounded answer should be written to the cache")
	}

	event := waitForEvent(t, p.analytics)
	if len(event.MatchedIDs) != 1 || event.MatchedIDs[0] != "faq-1" {
		t.Fatalf("analytics matched ids = %v", event.MatchedIDs)
	}
}

func TestAskCacheHitShortCircuits(t *testing.T) {
	p := newPipeline()
	p.cache.hit = &domain.CachedAnswer{
		Text:      "respuesta cacheada",
		Sources:   []domain.SourceRef{{ID: "faq-9", Similarity: 0.97}},
		QueryType: domain.QueryAdmission,
	}
	p.searcher.err = errors.New("search must not be called on cache hit")

	answer, err := p.uc.Ask(context.Background(), domain.AskRequest{Message: "cómo me inscribo", SessionID: "s1"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !answer.Metadata.FromCache {
		t.Fatal("expected fromCache=true")
	}
	if answer.Text != "respuesta cacheada" {
		t.Fatalf("answer = %q", answer.Text)
	}

	event := waitForEvent(t, p.analytics)
	if !event.FromCache {
		t.Fatal("analytics event should mark cache hit")
	}
}

func TestAskSearchParamsFollowClassification(t *testing.T) {
	p := newPipeline()

	if _, err := p.uc.Ask(context.Background(), domain.AskRequest{Message: "hola", SessionID: "s1"}); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if p.searcher.limit != 1 || p.searcher.threshold != 0.9 {
		t.Fatalf("greeting search params = (%d, %f), want (1, 0.9)", p.searcher.limit, p.searcher.threshold)
	}
}

func TestAskResolvesFollowUpFromMemory(t *testing.T) {
	p := newPipeline()
	p.memory.Append("s1", domain.RoleAssistant, "es una carrera", domain.TurnMetadata{Topic: "robótica"})

	if _, err := p.uc.Ask(context.Background(), domain.AskRequest{Message: "¿y eso cuánto dura?", SessionID: "s1"}); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !strings.Contains(p.embedder.lastQuery, "robótica") {
		t.Fatalf("embedded query %q should reference the resolved topic", p.embedder.lastQuery)
	}
}

func TestAskNoContextDoesNotCache(t *testing.T) {
	p := newPipeline()
	p.searcher.results = nil

	answer, err := p.uc.Ask(context.Background(), domain.AskRequest{Message: "pregunta rara", SessionID: "s1"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Metadata.FAQsCount != 0 {
		t.Fatalf("faqsCount = %d, want 0", answer.Metadata.FAQsCount)
	}
	if p.cache.stored != nil {
		t.Fatal("no-context answer must not be cached")
	}

	turns := p.memory.Recent("s1", 10)
	last := turns[len(turns)-1]
	if last.Role != domain.RoleAssistant || !last.Metadata.NoContext {
		t.Fatalf("assistant turn should record no-context, got %+v", last)
	}
}

func TestAskLowSimilarityIsNotGoodContext(t *testing.T) {
	p := newPipeline()
	p.searcher.results = []domain.RetrievedEntry{{ID: "faq-1", Question: "q", Answer: "a", Similarity: 0.5}}

	if _, err := p.uc.Ask(context.Background(), domain.AskRequest{Message: "pregunta", SessionID: "s1"}); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if p.cache.stored != nil {
		t.Fatal("below-threshold answer must not be cached")
	}
}

func TestAskValidation(t *testing.T) {
	p := newPipeline()

	if _, err := p.uc.Ask(context.Background(), domain.AskRequest{Message: "   "}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("empty message error = %v, want ErrInvalidInput", err)
	}

	long := strings.Repeat("a", 4001)
	if _, err := p.uc.Ask(context.Background(), domain.AskRequest{Message: long}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("oversized message error = %v, want ErrInvalidInput", err)
	}
}

func TestAskUpstreamErrorsAreFatal(t *testing.T) {
	embedFail := newPipeline()
	embedFail.embedder.err = errors.New("embed down")
	if _, err := embedFail.uc.Ask(context.Background(), domain.AskRequest{Message: "pregunta"}); !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("embed error = %v, want ErrUpstream", err)
	}

	searchFail := newPipeline()
	searchFail.searcher.err = errors.New("store down")
	if _, err := searchFail.uc.Ask(context.Background(), domain.AskRequest{Message: "pregunta"}); !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("search error = %v, want ErrUpstream", err)
	}

	genFail := newPipeline()
	genFail.generator.err = errors.New("llm down")
	if _, err := genFail.uc.Ask(context.Background(), domain.AskRequest{Message: "pregunta"}); !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("generate error = %v, want ErrUpstream", err)
	}
}

func TestAskAnalyticsFailureDoesNotSurface(t *testing.T) {
	p := newPipeline()
	p.analytics.err = errors.New("sink down")

	if _, err := p.uc.Ask(context.Background(), domain.AskRequest{Message: "pregunta", SessionID: "s1"}); err != nil {
		t.Fatalf("Ask() error = %v, analytics faults must be swallowed", err)
	}
	waitForEvent(t, p.analytics)
}

func TestAskStreamForwardsChunks(t *testing.T) {
	p := newPipeline()
	p.generator.text = "primera parte. segunda parte."
	p.searcher.results = []domain.RetrievedEntry{{ID: "faq-1", Question: "q", Answer: "a", Similarity: 0.9}}

	var chunks []string
	answer, err := p.uc.AskStream(context.Background(), domain.AskRequest{Message: "pregunta", SessionID: "s1"}, func(text string) error {
		chunks = append(chunks, text)
		return nil
	})
	if err != nil {
		t.Fatalf("AskStream() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != p.generator.text {
		t.Fatalf("chunks do not reassemble the answer: %q", strings.Join(chunks, ""))
	}
	if answer.Text != p.generator.text {
		t.Fatalf("answer text = %q", answer.Text)
	}
}

func TestAskStreamCacheHitSingleChunk(t *testing.T) {
	p := newPipeline()
	p.cache.hit = &domain.CachedAnswer{Text: "cacheada"}

	var chunks []string
	if _, err := p.uc.AskStream(context.Background(), domain.AskRequest{Message: "pregunta", SessionID: "s1"}, func(text string) error {
		chunks = append(chunks, text)
		return nil
	}); err != nil {
		t.Fatalf("AskStream() error = %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "cacheada" {
		t.Fatalf("cache hit chunks = %v, want single cached chunk", chunks)
	}
	waitForEvent(t, p.analytics)
}
