// Package answer generates grounded answers from program excerpts using
// a Gemini model via Genkit.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/wyborczy/wyborczy/internal/corpus"
	"github.com/wyborczy/wyborczy/internal/party"
)

// StreamFunc receives each text chunk as the model produces it.
// Returning an error aborts the stream.
type StreamFunc func(ctx context.Context, chunk string) error

// Config contains the required parameters for a Generator.
type Config struct {
	Genkit      *genkit.Genkit
	ModelName   string
	Temperature float64
	MaxTokens   int
	Logger      *slog.Logger

	// RateLimiter throttles calls to the model provider before they are
	// sent, so provider-side 429s stay rare. Nil installs the default of
	// 5 requests/sec with a burst of 10.
	RateLimiter *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	if cfg.MaxTokens <= 0 {
		return errors.New("max tokens must be positive")
	}
	return nil
}

// Generator produces answers to voter questions. All configuration is
// captured at construction, so a single Generator is safe for concurrent
// use by multiple goroutines.
type Generator struct {
	g           *genkit.Genkit
	modelName   string
	temperature float64
	maxTokens   int
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// New creates a Generator.
func New(cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(5, 10)
	}

	modelName := cfg.ModelName
	if !strings.Contains(modelName, "/") {
		modelName = "googleai/" + modelName
	}

	return &Generator{
		g:           cfg.Genkit,
		modelName:   modelName,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		limiter:     limiter,
		logger:      logger,
	}, nil
}

// Stream generates an answer to question grounded in docs, invoking
// onChunk for every chunk of model output. It returns the complete
// answer text after the stream ends.
func (gen *Generator) Stream(ctx context.Context, question string, p party.Party, docs []corpus.Document, onChunk StreamFunc) (string, error) {
	if len(docs) == 0 {
		return "", errors.New("no grounding documents provided")
	}

	if err := gen.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for model rate limit: %w", err)
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(gen.modelName),
		ai.WithSystem(buildSystemPrompt(p, docs)),
		ai.WithPrompt(question),
		ai.WithConfig(map[string]any{
			"temperature":     gen.temperature,
			"maxOutputTokens": gen.maxTokens,
		}),
	}
	if onChunk != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			if text := chunk.Text(); text != "" {
				return onChunk(ctx, text)
			}
			return nil
		}))
	}

	gen.logger.Debug("generating answer",
		"party", p,
		"model", gen.modelName,
		"question_length", len(question),
		"doc_count", len(docs))

	resp, err := genkit.Generate(ctx, gen.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("model returned empty answer")
	}
	return text, nil
}
