package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

const upsertSourceDocument = `
INSERT INTO source_documents (id, party, chapter_name, page_number, content, embedding)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    party = EXCLUDED.party,
    chapter_name = EXCLUDED.chapter_name,
    page_number = EXCLUDED.page_number,
    content = EXCLUDED.content,
    embedding = EXCLUDED.embedding
`

type UpsertSourceDocumentParams struct {
	ID          string
	Party       string
	ChapterName string
	PageNumber  int32
	Content     string
	Embedding   *pgvector.Vector
}

// UpsertSourceDocument inserts or replaces a grounding passage.
func (q *Queries) UpsertSourceDocument(ctx context.Context, arg UpsertSourceDocumentParams) error {
	_, err := q.db.Exec(ctx, upsertSourceDocument,
		arg.ID,
		arg.Party,
		arg.ChapterName,
		arg.PageNumber,
		arg.Content,
		arg.Embedding,
	)
	return err
}

const searchSourceDocuments = `
SELECT id, party, chapter_name, page_number, content,
       1 - (embedding <=> $1) AS similarity
FROM source_documents
WHERE party = $2
ORDER BY embedding <=> $1
LIMIT $3
`

type SearchSourceDocumentsParams struct {
	QueryEmbedding *pgvector.Vector
	Party          string
	ResultLimit    int32
}

type SearchSourceDocumentsRow struct {
	ID          string
	Party       string
	ChapterName string
	PageNumber  int32
	Content     string
	Similarity  float64
}

// SearchSourceDocuments performs party-filtered cosine similarity search.
func (q *Queries) SearchSourceDocuments(ctx context.Context, arg SearchSourceDocumentsParams) ([]SearchSourceDocumentsRow, error) {
	rows, err := q.db.Query(ctx, searchSourceDocuments, arg.QueryEmbedding, arg.Party, arg.ResultLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SearchSourceDocumentsRow
	for rows.Next() {
		var i SearchSourceDocumentsRow
		if err := rows.Scan(&i.ID, &i.Party, &i.ChapterName, &i.PageNumber, &i.Content, &i.Similarity); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getSourceDocuments = `
SELECT id, party, chapter_name, page_number, content, created_at
FROM source_documents
WHERE id = ANY($1::text[])
`

type GetSourceDocumentsRow struct {
	ID          string
	Party       string
	ChapterName string
	PageNumber  int32
	Content     string
	CreatedAt   pgtype.Timestamptz
}

// GetSourceDocuments fetches passages by ID. Order is unspecified; callers
// that need the request order must reorder the result themselves.
func (q *Queries) GetSourceDocuments(ctx context.Context, ids []string) ([]GetSourceDocumentsRow, error) {
	rows, err := q.db.Query(ctx, getSourceDocuments, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GetSourceDocumentsRow
	for rows.Next() {
		var i GetSourceDocumentsRow
		if err := rows.Scan(&i.ID, &i.Party, &i.ChapterName, &i.PageNumber, &i.Content, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countSourceDocumentsByParty = `
SELECT COUNT(*) FROM source_documents WHERE party = $1
`

// CountSourceDocumentsByParty returns the number of passages stored for a party.
func (q *Queries) CountSourceDocumentsByParty(ctx context.Context, party string) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countSourceDocumentsByParty, party).Scan(&count)
	return count, err
}
