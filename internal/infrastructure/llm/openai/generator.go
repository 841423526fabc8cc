// Package openai implements answer generation over the OpenAI chat
// completions API, including the streaming variant used by the SSE endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/amoralesc/faq-assistant/internal/core/domain"
	"github.com/amoralesc/faq-assistant/internal/infrastructure/resilience"
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

type Generator struct {
	client   *openai.Client
	cfg      Config
	executor *resilience.Executor
}

func NewGenerator(cfg Config, executor *resilience.Executor) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	return &Generator{
		client:   openai.NewClientWithConfig(clientCfg),
		cfg:      cfg,
		executor: executor,
	}, nil
}

func (g *Generator) request(systemPrompt, contextBlock string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: contextBlock},
		},
	}
}

// Generate returns the full completion in one shot.
func (g *Generator) Generate(ctx context.Context, systemPrompt, contextBlock string) (domain.Generation, error) {
	var resp openai.ChatCompletionResponse
	err := g.executor.Execute(ctx, "openai_generate", func(ctx context.Context) error {
		var callErr error
		resp, callErr = g.client.CreateChatCompletion(ctx, g.request(systemPrompt, contextBlock))
		return callErr
	}, classifyOpenAIError)
	if err != nil {
		return domain.Generation{}, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Generation{}, fmt.Errorf("openai completion: no choices returned")
	}
	return domain.Generation{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		TokensUsed: resp.Usage.TotalTokens,
		ModelID:    resp.Model,
	}, nil
}

// GenerateStream forwards completion deltas through onChunk as they arrive
// and returns the assembled text. The stream itself is not retried: once the
// first chunk is out, a retry would duplicate output on the wire.
func (g *Generator) GenerateStream(ctx context.Context, systemPrompt, contextBlock string, onChunk func(string) error) (domain.Generation, error) {
	stream, err := g.client.CreateChatCompletionStream(ctx, g.request(systemPrompt, contextBlock))
	if err != nil {
		return domain.Generation{}, fmt.Errorf("openai stream open: %w", err)
	}
	defer stream.Close()

	var b strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return domain.Generation{}, fmt.Errorf("openai stream recv: %w", recvErr)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		b.WriteString(delta)
		if err := onChunk(delta); err != nil {
			return domain.Generation{}, fmt.Errorf("forward chunk: %w", err)
		}
	}

	return domain.Generation{
		Text:    strings.TrimSpace(b.String()),
		ModelID: g.cfg.Model,
	}, nil
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 408, 429, 500, 502, 503, 504:
			return resilience.ErrorClassification{
				Retryable:     true,
				RecordFailure: true,
			}
		default:
			return resilience.ErrorClassification{
				Retryable:     false,
				RecordFailure: false,
			}
		}
	}

	return resilience.ErrorClassification{
		Retryable:     true,
		RecordFailure: true,
	}
}
