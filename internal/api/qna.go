package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/wyborczy/wyborczy/internal/answer"
	"github.com/wyborczy/wyborczy/internal/corpus"
	"github.com/wyborczy/wyborczy/internal/party"
	"github.com/wyborczy/wyborczy/internal/pipeline"
)

// Resolver answers questions. Implemented by *pipeline.Pipeline.
type Resolver interface {
	Resolve(ctx context.Context, req pipeline.Request, onChunk answer.StreamFunc) (*pipeline.Result, error)
}

// QnA handles question answering endpoints.
//
// Endpoints:
//   - POST /api/v1/qna/stream - Ask a question (SSE streaming)
type QnA struct {
	resolver   Resolver
	trustProxy bool
	logger     *slog.Logger
}

// NewQnA creates a QnA handler.
func NewQnA(resolver Resolver, trustProxy bool, logger *slog.Logger) *QnA {
	return &QnA{resolver: resolver, trustProxy: trustProxy, logger: logger}
}

// RegisterRoutes registers QnA routes on the given mux.
func (h *QnA) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/qna/stream", h.Stream)
}

// SSE event types for answer streaming.
const (
	// EventCached carries a complete cached answer with its sources.
	EventCached = "cached"
	// EventLimited carries the quota warning message.
	EventLimited = "limited"
	// EventChunk carries partial answer text.
	EventChunk = "chunk"
	// EventDone carries the complete fresh answer with its sources.
	EventDone = "done"
	// EventError reports a failure.
	EventError = "error"
)

// QuestionInput is the request body for the streaming endpoint.
type QuestionInput struct {
	Question string `json:"question"`
	Party    string `json:"party"`
}

// SourcePayload describes one grounding passage of an answer.
type SourcePayload struct {
	ID          string `json:"id"`
	ChapterName string `json:"chapterName"`
	PageNumber  int    `json:"pageNumber"`
}

// AnswerPayload is the SSE data payload for cached and done events.
type AnswerPayload struct {
	Answer  string          `json:"answer"`
	Sources []SourcePayload `json:"sources"`
}

// LimitedPayload is the SSE data payload when the caller is over quota.
type LimitedPayload struct {
	Message string `json:"message"`
}

// ChunkPayload is the SSE data payload for streaming text chunks.
type ChunkPayload struct {
	Text string `json:"text"`
}

// ErrorPayload is the SSE data payload when an error occurs.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stream handles a question over SSE. Cached and limited outcomes arrive
// as a single event; fresh answers stream chunk events followed by done.
func (h *QnA) Stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var input QuestionInput
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = writeEvent(w, flusher, EventError, ErrorPayload{
			Code:    "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	pty, err := party.Parse(input.Party)
	if err != nil {
		_ = writeEvent(w, flusher, EventError, ErrorPayload{
			Code:    "invalid_party",
			Message: fmt.Sprintf("Unknown party %q", input.Party),
		})
		return
	}

	ctx := r.Context()
	req := pipeline.Request{
		Question:    input.Question,
		Party:       pty,
		Fingerprint: clientIP(r, h.trustProxy),
	}

	h.logger.Debug("qna stream started", "party", pty)

	result, err := h.resolver.Resolve(ctx, req, func(ctx context.Context, chunk string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return writeEvent(w, flusher, EventChunk, ChunkPayload{Text: chunk})
	})
	if err != nil {
		if ctx.Err() != nil {
			h.logger.Info("client disconnected during stream", "party", pty)
			return
		}
		h.handleResolveError(w, flusher, err)
		return
	}

	switch {
	case result.Limited:
		_ = writeEvent(w, flusher, EventLimited, LimitedPayload{Message: result.LimitMessage})
	case result.Cached:
		_ = writeEvent(w, flusher, EventCached, AnswerPayload{
			Answer:  result.Answer,
			Sources: toSourcePayloads(result.Sources),
		})
	default:
		_ = writeEvent(w, flusher, EventDone, AnswerPayload{
			Answer:  result.Answer,
			Sources: toSourcePayloads(result.Sources),
		})
	}

	h.logger.Info("qna stream completed",
		"party", pty,
		"cached", result.Cached,
		"limited", result.Limited)
}

// handleResolveError maps pipeline errors to SSE error events.
func (h *QnA) handleResolveError(w io.Writer, f http.Flusher, err error) {
	code := "resolve_failed"
	message := "Failed to answer the question"

	var verr *pipeline.ValidationError
	switch {
	case errors.As(err, &verr):
		code = "invalid_question"
		message = verr.Message
	case errors.Is(err, pipeline.ErrNoSources):
		code = "no_sources"
		message = "No program excerpts found for this question"
	}

	h.logger.Error("qna stream failed", "code", code, "error", err)
	_ = writeEvent(w, f, EventError, ErrorPayload{Code: code, Message: message})
}

func toSourcePayloads(docs []corpus.Document) []SourcePayload {
	payloads := make([]SourcePayload, len(docs))
	for i, doc := range docs {
		payloads[i] = SourcePayload{
			ID:          doc.ID,
			ChapterName: doc.ChapterName,
			PageNumber:  doc.PageNumber,
		}
	}
	return payloads
}

// writeEvent writes a single SSE event with JSON-encoded data.
// SSE format: "event: <type>\ndata: <json>\n\n"
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	flusher.Flush()
	return nil
}
