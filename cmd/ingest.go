package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wyborczy/wyborczy/internal/app"
	"github.com/wyborczy/wyborczy/internal/config"
	"github.com/wyborczy/wyborczy/internal/corpus"
	"github.com/wyborczy/wyborczy/internal/log"
	"github.com/wyborczy/wyborczy/internal/party"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.json>",
	Short: "Load program passages into the corpus",
	Long: `Ingest reads a JSON array of program passages, embeds each one, and
stores it in the corpus. Expected format:

  [
    {
      "party": "lewica",
      "chapterName": "Mieszkania",
      "pageNumber": 12,
      "content": "Program mieszkaniowy dla młodych rodzin..."
    }
  ]

Passages without an "id" get a generated one. Re-ingesting a passage with
the same id replaces it.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

// passageInput is the on-disk ingestion format.
type passageInput struct {
	ID          string `json:"id"`
	Party       string `json:"party"`
	ChapterName string `json:"chapterName"`
	PageNumber  int    `json:"pageNumber"`
	Content     string `json:"content"`
}

func runIngest(_ *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.CheckAPIKey(); err != nil {
		return err
	}

	passages, err := readPassages(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(log.Config{Level: cfg.LogLevelSlog(), JSON: cfg.LogJSON})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	for i, in := range passages {
		doc, err := passageToDocument(in)
		if err != nil {
			return fmt.Errorf("passage %d: %w", i, err)
		}
		if err := a.Corpus.Add(ctx, doc); err != nil {
			return fmt.Errorf("storing passage %d (%s): %w", i, doc.ID, err)
		}
	}

	logger.Info("ingestion complete", "passages", len(passages))
	return nil
}

func readPassages(path string) ([]passageInput, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var passages []passageInput
	if err := json.Unmarshal(data, &passages); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(passages) == 0 {
		return nil, fmt.Errorf("%s contains no passages", path)
	}
	return passages, nil
}

func passageToDocument(in passageInput) (corpus.Document, error) {
	p, err := party.Parse(in.Party)
	if err != nil {
		return corpus.Document{}, err
	}
	if in.Content == "" {
		return corpus.Document{}, fmt.Errorf("empty content")
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}

	return corpus.Document{
		ID:          id,
		Party:       p,
		ChapterName: in.ChapterName,
		PageNumber:  in.PageNumber,
		Content:     in.Content,
	}, nil
}
