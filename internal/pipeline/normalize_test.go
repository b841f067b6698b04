package pipeline

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace runs", "Czy   będzie \t podwyżka", "Czy będzie podwyżka"},
		{"trims ends", "  Co z emeryturami?  ", "Co z emeryturami?"},
		{"drops space before question mark", "Co z emeryturami ?", "Co z emeryturami?"},
		{"drops space before period", "Tak to widzę .", "Tak to widzę."},
		{"drops space before exclamation", "Ważne pytanie !", "Ważne pytanie!"},
		{"newlines count as whitespace", "Czy\nbędzie\ntaniej ?", "Czy będzie taniej?"},
		{"plus sign is untouched", "Czy będzie 500+?", "Czy będzie 500+?"},
		{"already normal", "Czy będzie podwyżka płacy minimalnej?", "Czy będzie podwyżka płacy minimalnej?"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.in)
			if got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if again := Normalize(got); again != got {
				t.Errorf("not idempotent: Normalize(%q) = %q", got, again)
			}
		})
	}
}

func TestValidateQuestion(t *testing.T) {
	t.Run("accepts and normalizes", func(t *testing.T) {
		got, err := ValidateQuestion("  Czy będzie   taniej ?  ")
		if err != nil {
			t.Fatalf("ValidateQuestion() = %v", err)
		}
		if got != "Czy będzie taniej?" {
			t.Errorf("normalized = %q", got)
		}
	})

	t.Run("too short", func(t *testing.T) {
		_, err := ValidateQuestion("Co?")
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("error = %v, want ValidationError", err)
		}
		if verr.Message != "Pytanie musi mieć przynajmniej 5 znaków." {
			t.Errorf("message = %q", verr.Message)
		}
	})

	t.Run("length is measured before normalization", func(t *testing.T) {
		// 5 runes as typed; the normalized form is shorter.
		got, err := ValidateQuestion("C o ?")
		if err != nil {
			t.Fatalf("ValidateQuestion() = %v", err)
		}
		if got != "C o?" {
			t.Errorf("normalized = %q", got)
		}

		// Whitespace counts toward the raw length too.
		if _, err := ValidateQuestion("  Co? "); err != nil {
			t.Errorf("padded question rejected: %v", err)
		}
	})

	t.Run("boundary lengths", func(t *testing.T) {
		if _, err := ValidateQuestion("Czyż?"); err != nil {
			t.Errorf("5 runes rejected: %v", err)
		}
		if _, err := ValidateQuestion(strings.Repeat("ż", 100)); err != nil {
			t.Errorf("100 runes rejected: %v", err)
		}
	})

	t.Run("too long", func(t *testing.T) {
		_, err := ValidateQuestion(strings.Repeat("a", 101))
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("error = %v, want ValidationError", err)
		}
		if verr.Message != "Pytanie może mieć maksymalnie 100 znaków." {
			t.Errorf("message = %q", verr.Message)
		}
	})

	t.Run("length counts runes not bytes", func(t *testing.T) {
		// 100 two-byte runes, 200 bytes.
		if _, err := ValidateQuestion(strings.Repeat("ó", 100)); err != nil {
			t.Errorf("multibyte question rejected: %v", err)
		}
	})
}
