package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/wyborczy/wyborczy/internal/party"
)

// defaultPopularCount is how many questions the popular endpoint returns.
const defaultPopularCount = 5

// QuestionLister provides the most frequently asked questions.
// Implemented by *qacache.Store.
type QuestionLister interface {
	TopQuestions(ctx context.Context, limit int) ([]string, error)
}

// Questions handles question discovery endpoints.
//
// Endpoints:
//   - GET /api/v1/questions/popular - Most asked questions across parties
//   - GET /api/v1/parties           - Supported parties
type Questions struct {
	lister QuestionLister
	logger *slog.Logger
}

// NewQuestions creates a Questions handler.
func NewQuestions(lister QuestionLister, logger *slog.Logger) *Questions {
	return &Questions{lister: lister, logger: logger}
}

// RegisterRoutes registers discovery routes on the given mux.
func (h *Questions) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/questions/popular", h.Popular)
	mux.HandleFunc("GET /api/v1/parties", h.Parties)
}

// PopularResponse is the body of the popular questions endpoint.
type PopularResponse struct {
	Questions []string `json:"questions"`
}

// Popular returns the questions voters ask most often.
func (h *Questions) Popular(w http.ResponseWriter, r *http.Request) {
	questions, err := h.lister.TopQuestions(r.Context(), defaultPopularCount)
	if err != nil {
		h.logger.Error("listing popular questions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list popular questions")
		return
	}
	writeJSON(w, http.StatusOK, PopularResponse{Questions: questions})
}

// PartyPayload describes one supported party.
type PartyPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PartiesResponse is the body of the parties endpoint.
type PartiesResponse struct {
	Parties []PartyPayload `json:"parties"`
}

// Parties returns the supported parties in a stable order.
func (h *Questions) Parties(w http.ResponseWriter, _ *http.Request) {
	all := party.All()
	payloads := make([]PartyPayload, len(all))
	for i, p := range all {
		payloads[i] = PartyPayload{ID: string(p), Name: p.DisplayName()}
	}
	writeJSON(w, http.StatusOK, PartiesResponse{Parties: payloads})
}
