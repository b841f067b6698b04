package answer

import (
	"strings"
	"testing"

	"github.com/wyborczy/wyborczy/internal/corpus"
	"github.com/wyborczy/wyborczy/internal/party"
)

func TestBuildSystemPrompt(t *testing.T) {
	docs := []corpus.Document{
		{ChapterName: "Zdrowie", Content: "Skrócimy kolejki do specjalistów."},
		{ChapterName: "Edukacja", Content: "Podniesiemy nakłady na szkoły."},
	}

	prompt := buildSystemPrompt(party.Lewica, docs)

	if !strings.Contains(prompt, "programu wyborczego partii Lewica.") {
		t.Error("party display name missing from instruction")
	}
	if !strings.Contains(prompt, "w programie wyborczym partii Lewica.") {
		t.Error("party display name missing from refusal template")
	}
	if !strings.Contains(prompt, "Nazwa rozdziału: Zdrowie\nTreść rozdziału: Skrócimy kolejki do specjalistów.") {
		t.Error("first context block malformed")
	}

	// Blocks are separated by a blank line.
	first := strings.Index(prompt, "Nazwa rozdziału: Zdrowie")
	second := strings.Index(prompt, "Nazwa rozdziału: Edukacja")
	if first == -1 || second == -1 || second < first {
		t.Fatalf("context blocks out of order: first=%d second=%d", first, second)
	}
	between := prompt[first:second]
	if !strings.Contains(between, "\n\n") {
		t.Error("context blocks not separated by blank line")
	}

	// Context comes after the instruction header.
	if !strings.Contains(prompt, "KONTEKST:") {
		t.Error("context header missing")
	}
}

func TestBuildSystemPromptUsesDisplayName(t *testing.T) {
	prompt := buildSystemPrompt(party.PrawoISprawiedliwosc, []corpus.Document{{ChapterName: "X", Content: "Y"}})

	if !strings.Contains(prompt, "Prawo i Sprawiedliwość") {
		t.Error("expected full display name, not slug")
	}
	if strings.Contains(prompt, "prawo-i-sprawiedliwosc") {
		t.Error("slug leaked into the prompt")
	}
}
