package ports

import (
	"context"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
)

// AnswerService is the inbound contract for the retrieval-augmented pipeline.
type AnswerService interface {
	Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error)
	AskStream(ctx context.Context, req domain.AskRequest, onChunk func(text string) error) (*domain.Answer, error)
}

// CacheInspector exposes read-only cache counters for observability.
type CacheInspector interface {
	Stats() CacheStats
}

// CacheStats is a point-in-time snapshot of the semantic cache.
type CacheStats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Expired int `json:"expired"`
}
