// Package qacache persists generated answers keyed by normalized question
// and party, and tracks how often each question is asked.
package qacache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wyborczy/wyborczy/internal/party"
	"github.com/wyborczy/wyborczy/internal/postgres"
)

// fallbackQuestions pads the popular-questions list while the cache is
// still warming up after a deployment.
var fallbackQuestions = []string{
	"Jakie będą korzyści dla młodych?",
	"Czy zadbają o środowisko?",
	"Czy będzie podwyżka płacy minimalnej?",
	"Co zyskają seniorzy?",
	"Czy będzie podwyżka pensji dla nauczycieli?",
}

// Entry is a cached answer for one (question, party) pair.
type Entry struct {
	Question     string
	Party        party.Party
	Answer       string
	SourceDocIDs []string
	SearchCount  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Querier defines the database operations Store needs.
type Querier interface {
	GetCachedAnswer(ctx context.Context, arg postgres.GetCachedAnswerParams) (postgres.GetCachedAnswerRow, error)
	RecordCacheHit(ctx context.Context, arg postgres.RecordCacheHitParams) error
	InsertCachedAnswer(ctx context.Context, arg postgres.InsertCachedAnswerParams) error
	UpdateCachedAnswer(ctx context.Context, arg postgres.UpdateCachedAnswerParams) error
	TopQuestions(ctx context.Context, limit int32) ([]postgres.TopQuestionsRow, error)
}

// Store is the answer cache. It is safe for concurrent use.
type Store struct {
	queries Querier
	logger  *slog.Logger
}

// New creates a Store. A nil logger falls back to slog.Default.
func New(querier Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{queries: querier, logger: logger}
}

// Lookup returns the cached entry for (question, party), or nil on a miss.
// Database errors degrade to a miss: a broken cache must never take the
// whole answering pipeline down, so the error is logged and swallowed.
func (s *Store) Lookup(ctx context.Context, question string, p party.Party) *Entry {
	row, err := s.queries.GetCachedAnswer(ctx, postgres.GetCachedAnswerParams{
		Question: question,
		Party:    string(p),
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("cache lookup failed, treating as miss",
				"party", p, "error", err)
		}
		return nil
	}

	entry := &Entry{
		Question:     row.Question,
		Party:        party.Party(row.Party),
		Answer:       row.Answer,
		SourceDocIDs: row.SourceDocIDs,
		SearchCount:  int(row.SearchCount),
	}
	if row.CreatedAt.Valid {
		entry.CreatedAt = row.CreatedAt.Time
	}
	if row.UpdatedAt.Valid {
		entry.UpdatedAt = row.UpdatedAt.Time
	}
	return entry
}

// RecordHit bumps the popularity counter for a cached answer. The
// increment is a single UPDATE statement, so concurrent hits all count.
func (s *Store) RecordHit(ctx context.Context, question string, p party.Party) error {
	err := s.queries.RecordCacheHit(ctx, postgres.RecordCacheHitParams{
		Question: question,
		Party:    string(p),
	})
	if err != nil {
		return fmt.Errorf("recording cache hit: %w", err)
	}
	return nil
}

// Insert stores a freshly generated answer. When a concurrent request
// already cached an answer for the same key, the existing answer wins and
// only the counter is bumped.
func (s *Store) Insert(ctx context.Context, entry Entry) error {
	err := s.queries.InsertCachedAnswer(ctx, postgres.InsertCachedAnswerParams{
		Question:     entry.Question,
		Party:        string(entry.Party),
		Answer:       entry.Answer,
		SourceDocIDs: entry.SourceDocIDs,
	})
	if err != nil {
		return fmt.Errorf("inserting cached answer: %w", err)
	}
	s.logger.Debug("cached answer", "party", entry.Party, "sources", len(entry.SourceDocIDs))
	return nil
}

// Replace overwrites the answer and source ids of an existing entry,
// keeping its popularity counter. Used when a cached answer references
// source documents that no longer exist: the entry must be repaired, not
// bumped, or it would dangle forever.
func (s *Store) Replace(ctx context.Context, entry Entry) error {
	err := s.queries.UpdateCachedAnswer(ctx, postgres.UpdateCachedAnswerParams{
		Question:     entry.Question,
		Party:        string(entry.Party),
		Answer:       entry.Answer,
		SourceDocIDs: entry.SourceDocIDs,
	})
	if err != nil {
		return fmt.Errorf("replacing cached answer: %w", err)
	}
	s.logger.Debug("replaced cached answer", "party", entry.Party, "sources", len(entry.SourceDocIDs))
	return nil
}

// TopQuestions returns up to limit questions ordered by total ask count
// across all parties. When the cache holds fewer than limit distinct
// questions, the list is padded from a fixed pool without duplicating
// questions already present.
func (s *Store) TopQuestions(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := s.queries.TopQuestions(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("listing top questions: %w", err)
	}

	questions := make([]string, 0, limit)
	seen := make(map[string]bool, limit)
	for _, row := range rows {
		questions = append(questions, row.Question)
		seen[row.Question] = true
	}
	for _, q := range fallbackQuestions {
		if len(questions) >= limit {
			break
		}
		if !seen[q] {
			questions = append(questions, q)
			seen[q] = true
		}
	}
	return questions, nil
}
