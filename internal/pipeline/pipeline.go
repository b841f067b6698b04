// Package pipeline resolves voter questions end to end: cache lookup,
// quota check, similarity retrieval, streamed generation, and persistence
// of the finished answer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wyborczy/wyborczy/internal/answer"
	"github.com/wyborczy/wyborczy/internal/corpus"
	"github.com/wyborczy/wyborczy/internal/party"
	"github.com/wyborczy/wyborczy/internal/qacache"
	"github.com/wyborczy/wyborczy/internal/ratelimit"
)

// ErrNoSources indicates that retrieval produced nothing to ground an
// answer on. Generation never runs ungrounded, so this is fatal for the
// request.
var ErrNoSources = errors.New("no grounding documents found for question")

// Cache is the answer cache as the pipeline consumes it.
type Cache interface {
	Lookup(ctx context.Context, question string, p party.Party) *qacache.Entry
	RecordHit(ctx context.Context, question string, p party.Party) error
	Insert(ctx context.Context, entry qacache.Entry) error
	Replace(ctx context.Context, entry qacache.Entry) error
}

// Limiter enforces the per-caller question quota.
type Limiter interface {
	Check(fingerprint string) ratelimit.Decision
	RecordUsage(fingerprint string)
}

// Retriever finds grounding passages for a question.
type Retriever interface {
	SearchByParty(ctx context.Context, query string, p party.Party, topK int) ([]corpus.Result, error)
	GetByIDs(ctx context.Context, ids []string) ([]corpus.Document, error)
}

// Generator produces an answer grounded in the given documents,
// streaming chunks through onChunk.
type Generator interface {
	Stream(ctx context.Context, question string, p party.Party, docs []corpus.Document, onChunk answer.StreamFunc) (string, error)
}

// Request identifies one question resolution. Fingerprint is derived
// server-side from the connection and never taken from request payloads.
type Request struct {
	Question    string
	Party       party.Party
	Fingerprint string
}

// Result is the outcome of a resolution. Exactly one of three shapes
// occurs: a limited result (Limited set, Message set, no answer), a
// cached result (Cached set), or a fresh answer.
type Result struct {
	// Question is the normalized form actually resolved.
	Question string

	Answer  string
	Sources []corpus.Document

	Cached bool

	Limited      bool
	LimitMessage string
}

// Config contains the pipeline dependencies.
type Config struct {
	Cache     Cache
	Limiter   Limiter
	Retriever Retriever
	Generator Generator
	TopK      int
	Logger    *slog.Logger
}

func (cfg Config) validate() error {
	if cfg.Cache == nil {
		return errors.New("cache is required")
	}
	if cfg.Limiter == nil {
		return errors.New("limiter is required")
	}
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	if cfg.Generator == nil {
		return errors.New("generator is required")
	}
	if cfg.TopK <= 0 {
		return errors.New("topK must be positive")
	}
	return nil
}

// Pipeline is safe for concurrent use by multiple goroutines.
type Pipeline struct {
	cache     Cache
	limiter   Limiter
	retriever Retriever
	generator Generator
	topK      int
	logger    *slog.Logger
}

// New creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cache:     cfg.Cache,
		limiter:   cfg.Limiter,
		retriever: cfg.Retriever,
		generator: cfg.Generator,
		topK:      cfg.TopK,
		logger:    logger,
	}, nil
}

// Resolve answers a single question. Streamed generation chunks go
// through onChunk; cached and limited outcomes produce no chunks and are
// returned whole.
//
// Resolution order: cache, quota, retrieval, generation. A cache hit is
// served without consuming quota. Quota is charged when generation
// tears down, successful or not, so abandoned requests still count.
func (p *Pipeline) Resolve(ctx context.Context, req Request, onChunk answer.StreamFunc) (*Result, error) {
	question, err := ValidateQuestion(req.Question)
	if err != nil {
		return nil, err
	}
	if !req.Party.Valid() {
		return nil, fmt.Errorf("%w: %q", party.ErrUnknown, req.Party)
	}

	// staleEntry marks a cached entry that exists but cannot be served,
	// typically because its source documents were re-ingested under new
	// ids. Regeneration then repairs the entry in place; a plain upsert
	// would only bump its counter and leave the dangling ids behind.
	staleEntry := false
	if entry := p.cache.Lookup(ctx, question, req.Party); entry != nil {
		if result := p.serveFromCache(ctx, question, req.Party, entry); result != nil {
			return result, nil
		}
		staleEntry = true
	}

	decision := p.limiter.Check(req.Fingerprint)
	if !decision.Allowed {
		p.logger.Info("question rejected by quota",
			"party", req.Party, "retry_in", decision.RetryIn)
		return &Result{
			Question:     question,
			Limited:      true,
			LimitMessage: decision.Message,
		}, nil
	}

	results, err := p.retriever.SearchByParty(ctx, question, req.Party, p.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving sources: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w (party %s)", ErrNoSources, req.Party)
	}

	docs := make([]corpus.Document, len(results))
	for i, r := range results {
		docs[i] = r.Document
	}

	// Quota is charged on teardown whatever happens inside, including
	// stream errors and client disconnects.
	answerText, err := func() (string, error) {
		defer p.limiter.RecordUsage(req.Fingerprint)
		return p.generator.Stream(ctx, question, req.Party, docs, onChunk)
	}()
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	// Only complete, uncancelled answers are worth caching.
	if ctx.Err() == nil {
		ids := make([]string, len(docs))
		for i, doc := range docs {
			ids[i] = doc.ID
		}
		entry := qacache.Entry{
			Question:     question,
			Party:        req.Party,
			Answer:       answerText,
			SourceDocIDs: ids,
		}
		var persistErr error
		if staleEntry {
			persistErr = p.cache.Replace(ctx, entry)
		} else {
			persistErr = p.cache.Insert(ctx, entry)
		}
		if persistErr != nil {
			// The caller already has the answer; losing the cache write
			// costs one future generation, not this request.
			p.logger.Warn("caching answer failed", "party", req.Party, "error", persistErr)
		}
	}

	return &Result{
		Question: question,
		Answer:   answerText,
		Sources:  docs,
	}, nil
}

// serveFromCache reconstructs the source documents of a cached answer and
// records the hit. It returns nil when the entry cannot be served, in
// which case the caller falls back to fresh generation.
func (p *Pipeline) serveFromCache(ctx context.Context, question string, pty party.Party, entry *qacache.Entry) *Result {
	if entry.Answer == "" || len(entry.SourceDocIDs) == 0 {
		p.logger.Warn("cached entry incomplete, regenerating", "party", pty)
		return nil
	}

	docs, err := p.retriever.GetByIDs(ctx, entry.SourceDocIDs)
	if err != nil {
		p.logger.Warn("cached sources unavailable, regenerating",
			"party", pty, "error", err)
		return nil
	}

	if err := p.cache.RecordHit(ctx, question, pty); err != nil {
		// The answer is still good; only the popularity counter suffers.
		p.logger.Warn("recording cache hit failed", "party", pty, "error", err)
	}

	p.logger.Debug("served from cache", "party", pty, "search_count", entry.SearchCount)
	return &Result{
		Question: question,
		Answer:   entry.Answer,
		Sources:  docs,
		Cached:   true,
	}
}
