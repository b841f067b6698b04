// Package app wires configuration, database, Genkit, and the answering
// pipeline into a runnable application.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wyborczy/wyborczy/internal/answer"
	"github.com/wyborczy/wyborczy/internal/config"
	"github.com/wyborczy/wyborczy/internal/corpus"
	"github.com/wyborczy/wyborczy/internal/pipeline"
	"github.com/wyborczy/wyborczy/internal/qacache"
	"github.com/wyborczy/wyborczy/internal/ratelimit"
)

// App holds all initialized application components.
// Create with Setup, release with Close.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DBPool   *pgxpool.Pool
	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	Corpus    *corpus.Store
	Cache     *qacache.Store
	Limiter   *ratelimit.Limiter
	Generator *answer.Generator
	Pipeline  *pipeline.Pipeline

	dbCleanup func()
}

// Close releases all resources in reverse initialization order.
// Safe to call multiple times and on a partially initialized App.
func (a *App) Close() error {
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
	}
	return nil
}
