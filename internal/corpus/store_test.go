package corpus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/wyborczy/wyborczy/internal/party"
	"github.com/wyborczy/wyborczy/internal/postgres"
)

// mockEmbedder implements ai.Embedder for testing.
type mockEmbedder struct {
	embedErr    error
	returnEmpty bool
	embeddings  []float32

	callCount int
	lastInput string
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(api.Registry) {}

func (m *mockEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	if len(req.Input) > 0 && len(req.Input[0].Content) > 0 {
		m.lastInput = req.Input[0].Content[0].Text
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.returnEmpty {
		return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: []float32{}}}}, nil
	}
	embeddings := m.embeddings
	if embeddings == nil {
		embeddings = []float32{0.1, 0.2, 0.3}
	}
	return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: embeddings}}}, nil
}

// mockQuerier implements Querier for testing.
type mockQuerier struct {
	upsertErr error
	searchErr error
	getErr    error
	countErr  error

	searchResults []postgres.SearchSourceDocumentsRow
	getResults    []postgres.GetSourceDocumentsRow
	countResult   int64

	upsertCalls      int
	searchCalls      int
	getCalls         int
	lastUpsertParams postgres.UpsertSourceDocumentParams
	lastSearchParams postgres.SearchSourceDocumentsParams
	lastGetIDs       []string
}

func (m *mockQuerier) UpsertSourceDocument(_ context.Context, arg postgres.UpsertSourceDocumentParams) error {
	m.upsertCalls++
	m.lastUpsertParams = arg
	return m.upsertErr
}

func (m *mockQuerier) SearchSourceDocuments(_ context.Context, arg postgres.SearchSourceDocumentsParams) ([]postgres.SearchSourceDocumentsRow, error) {
	m.searchCalls++
	m.lastSearchParams = arg
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResults, nil
}

func (m *mockQuerier) GetSourceDocuments(_ context.Context, ids []string) ([]postgres.GetSourceDocumentsRow, error) {
	m.getCalls++
	m.lastGetIDs = ids
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.getResults, nil
}

func (m *mockQuerier) CountSourceDocumentsByParty(_ context.Context, _ string) (int64, error) {
	return m.countResult, m.countErr
}

func TestAdd(t *testing.T) {
	t.Run("embeds content and upserts", func(t *testing.T) {
		querier := &mockQuerier{}
		embedder := &mockEmbedder{}
		store := New(querier, embedder, nil)

		doc := Document{
			ID:          "ko-rozdzial-3-p12",
			Party:       party.KoalicjaObywatelska,
			ChapterName: "Gospodarka",
			PageNumber:  12,
			Content:     "Podniesiemy kwotę wolną od podatku.",
		}
		if err := store.Add(context.Background(), doc); err != nil {
			t.Fatalf("Add() = %v", err)
		}

		if embedder.lastInput != doc.Content {
			t.Errorf("embedded %q, want document content", embedder.lastInput)
		}
		if querier.upsertCalls != 1 {
			t.Errorf("upsert calls = %d, want 1", querier.upsertCalls)
		}
		if querier.lastUpsertParams.Party != "koalicja-obywatelska" {
			t.Errorf("party = %q", querier.lastUpsertParams.Party)
		}
		if querier.lastUpsertParams.Embedding == nil {
			t.Error("embedding not passed to upsert")
		}
	})

	t.Run("embedding failure stops before database", func(t *testing.T) {
		querier := &mockQuerier{}
		embedder := &mockEmbedder{embedErr: errors.New("quota exceeded")}
		store := New(querier, embedder, nil)

		err := store.Add(context.Background(), Document{ID: "x", Content: "y"})
		if err == nil {
			t.Fatal("expected error")
		}
		if querier.upsertCalls != 0 {
			t.Errorf("upsert called %d times despite embedding failure", querier.upsertCalls)
		}
	})
}

func TestSearchByParty(t *testing.T) {
	t.Run("passes party filter and topK", func(t *testing.T) {
		querier := &mockQuerier{
			searchResults: []postgres.SearchSourceDocumentsRow{
				{ID: "a", Party: "lewica", ChapterName: "Mieszkania", PageNumber: 4, Content: "...", Similarity: 0.91},
				{ID: "b", Party: "lewica", ChapterName: "Praca", PageNumber: 9, Content: "...", Similarity: 0.84},
			},
		}
		embedder := &mockEmbedder{}
		store := New(querier, embedder, nil)

		results, err := store.SearchByParty(context.Background(), "mieszkania dla młodych", party.Lewica, 5)
		if err != nil {
			t.Fatalf("SearchByParty() = %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("got %d results, want 2", len(results))
		}
		if querier.lastSearchParams.Party != "lewica" {
			t.Errorf("party filter = %q", querier.lastSearchParams.Party)
		}
		if querier.lastSearchParams.ResultLimit != 5 {
			t.Errorf("limit = %d, want 5", querier.lastSearchParams.ResultLimit)
		}
		if results[0].Similarity != 0.91 || results[0].Party != party.Lewica {
			t.Errorf("unexpected first result: %+v", results[0])
		}
	})

	t.Run("rejects non-positive topK", func(t *testing.T) {
		store := New(&mockQuerier{}, &mockEmbedder{}, nil)
		if _, err := store.SearchByParty(context.Background(), "q", party.Lewica, 0); err == nil {
			t.Fatal("expected error for topK=0")
		}
	})

	t.Run("empty embedding is an error", func(t *testing.T) {
		store := New(&mockQuerier{}, &mockEmbedder{returnEmpty: true}, nil)
		if _, err := store.SearchByParty(context.Background(), "q", party.Lewica, 5); err == nil {
			t.Fatal("expected error for empty embedding")
		}
	})

	t.Run("database error propagates", func(t *testing.T) {
		querier := &mockQuerier{searchErr: errors.New("connection refused")}
		store := New(querier, &mockEmbedder{}, nil)
		if _, err := store.SearchByParty(context.Background(), "q", party.Lewica, 5); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestGetByIDs(t *testing.T) {
	now := time.Now()

	t.Run("preserves request order", func(t *testing.T) {
		querier := &mockQuerier{
			getResults: []postgres.GetSourceDocumentsRow{
				{ID: "b", Party: "psl", ChapterName: "Rolnictwo", PageNumber: 2, Content: "B"},
				{ID: "a", Party: "psl", ChapterName: "Wieś", PageNumber: 1, Content: "A", CreatedAt: pgtype.Timestamptz{Time: now, Valid: true}},
			},
		}
		store := New(querier, &mockEmbedder{}, nil)

		docs, err := store.GetByIDs(context.Background(), []string{"a", "b"})
		if err != nil {
			t.Fatalf("GetByIDs() = %v", err)
		}
		if len(docs) != 2 || docs[0].ID != "a" || docs[1].ID != "b" {
			t.Fatalf("order not preserved: %+v", docs)
		}
		if !docs[0].CreatedAt.Equal(now) {
			t.Errorf("created_at not carried over")
		}
	})

	t.Run("missing document is an error", func(t *testing.T) {
		querier := &mockQuerier{
			getResults: []postgres.GetSourceDocumentsRow{{ID: "a"}},
		}
		store := New(querier, &mockEmbedder{}, nil)

		if _, err := store.GetByIDs(context.Background(), []string{"a", "gone"}); err == nil {
			t.Fatal("expected error for missing document")
		}
	})

	t.Run("empty input skips the database", func(t *testing.T) {
		querier := &mockQuerier{}
		store := New(querier, &mockEmbedder{}, nil)

		docs, err := store.GetByIDs(context.Background(), nil)
		if err != nil || docs != nil {
			t.Fatalf("GetByIDs(nil) = %v, %v", docs, err)
		}
		if querier.getCalls != 0 {
			t.Errorf("database queried for empty input")
		}
	})
}
