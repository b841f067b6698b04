package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"

	"github.com/wyborczy/wyborczy/internal/party"
	"github.com/wyborczy/wyborczy/internal/postgres"
)

// searchTimeout bounds embedding generation plus the vector query.
const searchTimeout = 10 * time.Second

// Querier defines the database operations Store needs. Interfaces are
// defined by the consumer, so tests can substitute a mock without a
// database.
type Querier interface {
	UpsertSourceDocument(ctx context.Context, arg postgres.UpsertSourceDocumentParams) error
	SearchSourceDocuments(ctx context.Context, arg postgres.SearchSourceDocumentsParams) ([]postgres.SearchSourceDocumentsRow, error)
	GetSourceDocuments(ctx context.Context, ids []string) ([]postgres.GetSourceDocumentsRow, error)
	CountSourceDocumentsByParty(ctx context.Context, p string) (int64, error)
}

// Store manages the grounding corpus with vector search.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store. A nil logger falls back to slog.Default.
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Add embeds a passage and upserts it into the corpus.
func (s *Store) Add(ctx context.Context, doc Document) error {
	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	err = s.queries.UpsertSourceDocument(ctx, postgres.UpsertSourceDocumentParams{
		ID:          doc.ID,
		Party:       string(doc.Party),
		ChapterName: doc.ChapterName,
		PageNumber:  int32(doc.PageNumber),
		Content:     doc.Content,
		Embedding:   embedding,
	})
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added corpus document",
		"id", doc.ID,
		"party", doc.Party,
		"content_length", len(doc.Content))
	return nil
}

// SearchByParty returns the topK passages of a single party most similar
// to the query, ordered by descending similarity. Passages of other
// parties are never returned.
func (s *Store) SearchByParty(ctx context.Context, query string, p party.Party, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.queries.SearchSourceDocuments(queryCtx, postgres.SearchSourceDocumentsParams{
		QueryEmbedding: embedding,
		Party:          string(p),
		ResultLimit:    int32(topK),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("similarity search timeout: %w", err)
		}
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			Document: Document{
				ID:          row.ID,
				Party:       party.Party(row.Party),
				ChapterName: row.ChapterName,
				PageNumber:  int(row.PageNumber),
				Content:     row.Content,
			},
			Similarity: row.Similarity,
		})
	}

	s.logger.Debug("corpus search", "party", p, "top_k", topK, "results", len(results))
	return results, nil
}

// GetByIDs fetches passages by ID, preserving the order of ids. Missing
// IDs produce an error, since cached answers must not silently lose the
// sources they were generated from.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.queries.GetSourceDocuments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching documents: %w", err)
	}

	byID := make(map[string]postgres.GetSourceDocumentsRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		row, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("document %q not found", id)
		}
		var createdAt time.Time
		if row.CreatedAt.Valid {
			createdAt = row.CreatedAt.Time
		}
		docs = append(docs, Document{
			ID:          row.ID,
			Party:       party.Party(row.Party),
			ChapterName: row.ChapterName,
			PageNumber:  int(row.PageNumber),
			Content:     row.Content,
			CreatedAt:   createdAt,
		})
	}
	return docs, nil
}

// CountByParty returns the number of passages stored for a party.
func (s *Store) CountByParty(ctx context.Context, p party.Party) (int64, error) {
	count, err := s.queries.CountSourceDocumentsByParty(ctx, string(p))
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

func (s *Store) embed(ctx context.Context, text string) (*pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, errors.New("embedder returned empty embedding")
	}
	v := pgvector.NewVector(resp.Embeddings[0].Embedding)
	return &v, nil
}
