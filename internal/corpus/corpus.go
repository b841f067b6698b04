// Package corpus stores and retrieves election program passages.
//
// Each passage belongs to exactly one party and carries the chapter name
// and page number it came from, so answers can cite their sources. Vector
// similarity search runs in PostgreSQL via pgvector.
package corpus

import (
	"time"

	"github.com/wyborczy/wyborczy/internal/party"
)

// Document is a single grounding passage from a party's election program.
type Document struct {
	ID          string
	Party       party.Party
	ChapterName string
	PageNumber  int
	Content     string
	CreatedAt   time.Time
}

// Result pairs a retrieved document with its similarity to the query.
// Similarity is cosine similarity in [0, 1]; higher is closer.
type Result struct {
	Document
	Similarity float64
}
