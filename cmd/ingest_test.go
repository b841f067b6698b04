package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wyborczy/wyborczy/internal/party"
)

func TestPassageToDocument(t *testing.T) {
	doc, err := passageToDocument(passageInput{
		ID:          "doc-1",
		Party:       "lewica",
		ChapterName: "Mieszkania",
		PageNumber:  12,
		Content:     "Program mieszkaniowy.",
	})
	if err != nil {
		t.Fatalf("passageToDocument() error = %v", err)
	}
	if doc.ID != "doc-1" {
		t.Errorf("ID = %q, want doc-1", doc.ID)
	}
	if doc.Party != party.Lewica {
		t.Errorf("Party = %q, want %q", doc.Party, party.Lewica)
	}
}

func TestPassageToDocumentGeneratesID(t *testing.T) {
	doc, err := passageToDocument(passageInput{
		Party:   "psl",
		Content: "Treść rozdziału.",
	})
	if err != nil {
		t.Fatalf("passageToDocument() error = %v", err)
	}
	if doc.ID == "" {
		t.Error("expected generated ID for passage without one")
	}
}

func TestPassageToDocumentRejectsBadInput(t *testing.T) {
	if _, err := passageToDocument(passageInput{Party: "partia-piratow", Content: "x"}); err == nil {
		t.Error("expected error for unknown party")
	}
	if _, err := passageToDocument(passageInput{Party: "lewica"}); err == nil {
		t.Error("expected error for empty content")
	}
}

func TestReadPassages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passages.json")
	payload := `[{"party":"konfederacja","chapterName":"Podatki","pageNumber":3,"content":"Niższe podatki."}]`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatal(err)
	}

	passages, err := readPassages(path)
	if err != nil {
		t.Fatalf("readPassages() error = %v", err)
	}
	if len(passages) != 1 {
		t.Fatalf("got %d passages, want 1", len(passages))
	}
	if passages[0].ChapterName != "Podatki" {
		t.Errorf("ChapterName = %q, want Podatki", passages[0].ChapterName)
	}
}

func TestReadPassagesErrors(t *testing.T) {
	if _, err := readPassages(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	empty := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(empty, []byte(`[]`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readPassages(empty); err == nil {
		t.Error("expected error for empty passage list")
	}
}
