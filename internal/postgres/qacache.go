package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getCachedAnswer = `
SELECT question, party, answer, source_doc_ids, search_count, created_at, updated_at
FROM qa_cache
WHERE question = $1 AND party = $2
`

type GetCachedAnswerParams struct {
	Question string
	Party    string
}

type GetCachedAnswerRow struct {
	Question     string
	Party        string
	Answer       string
	SourceDocIDs []string
	SearchCount  int32
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

// GetCachedAnswer returns the cached answer for (question, party).
// Returns pgx.ErrNoRows when absent.
func (q *Queries) GetCachedAnswer(ctx context.Context, arg GetCachedAnswerParams) (GetCachedAnswerRow, error) {
	var i GetCachedAnswerRow
	err := q.db.QueryRow(ctx, getCachedAnswer, arg.Question, arg.Party).Scan(
		&i.Question,
		&i.Party,
		&i.Answer,
		&i.SourceDocIDs,
		&i.SearchCount,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const recordCacheHit = `
UPDATE qa_cache
SET search_count = search_count + 1, updated_at = now()
WHERE question = $1 AND party = $2
`

type RecordCacheHitParams struct {
	Question string
	Party    string
}

// RecordCacheHit increments the popularity counter in a single statement,
// so concurrent hits never lose increments.
func (q *Queries) RecordCacheHit(ctx context.Context, arg RecordCacheHitParams) error {
	_, err := q.db.Exec(ctx, recordCacheHit, arg.Question, arg.Party)
	return err
}

const insertCachedAnswer = `
INSERT INTO qa_cache (question, party, answer, source_doc_ids)
VALUES ($1, $2, $3, $4)
ON CONFLICT (question, party) DO UPDATE SET
    search_count = qa_cache.search_count + 1,
    updated_at = now()
`

type InsertCachedAnswerParams struct {
	Question     string
	Party        string
	Answer       string
	SourceDocIDs []string
}

// InsertCachedAnswer stores a freshly generated answer. When another writer
// got there first, the existing answer is kept and its counter bumped.
func (q *Queries) InsertCachedAnswer(ctx context.Context, arg InsertCachedAnswerParams) error {
	_, err := q.db.Exec(ctx, insertCachedAnswer,
		arg.Question,
		arg.Party,
		arg.Answer,
		arg.SourceDocIDs,
	)
	return err
}

const updateCachedAnswer = `
UPDATE qa_cache
SET answer = $3, source_doc_ids = $4, updated_at = now()
WHERE question = $1 AND party = $2
`

type UpdateCachedAnswerParams struct {
	Question     string
	Party        string
	Answer       string
	SourceDocIDs []string
}

// UpdateCachedAnswer overwrites the stored answer and source ids of an
// existing entry without touching search_count.
func (q *Queries) UpdateCachedAnswer(ctx context.Context, arg UpdateCachedAnswerParams) error {
	_, err := q.db.Exec(ctx, updateCachedAnswer,
		arg.Question,
		arg.Party,
		arg.Answer,
		arg.SourceDocIDs,
	)
	return err
}

const topQuestions = `
SELECT question, SUM(search_count)::bigint AS total
FROM qa_cache
GROUP BY question
ORDER BY total DESC, question
LIMIT $1
`

type TopQuestionsRow struct {
	Question string
	Total    int64
}

// TopQuestions returns the most frequently asked questions across parties.
func (q *Queries) TopQuestions(ctx context.Context, limit int32) ([]TopQuestionsRow, error) {
	rows, err := q.db.Query(ctx, topQuestions, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TopQuestionsRow
	for rows.Next() {
		var i TopQuestionsRow
		if err := rows.Scan(&i.Question, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
