package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minQuestionLen = 5
	maxQuestionLen = 100
)

var (
	whitespaceRun    = regexp.MustCompile(`\s+`)
	spaceBeforePunct = regexp.MustCompile(`\s+([?.!])`)
)

// ValidationError carries a caller-facing message in Polish. The API
// layer returns it verbatim with a 400 status.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Normalize canonicalizes a question so that trivially different spellings
// share one cache key: whitespace runs collapse to a single space, spaces
// before sentence punctuation are dropped, and the result is trimmed.
// Normalize is idempotent.
func Normalize(question string) string {
	question = whitespaceRun.ReplaceAllString(question, " ")
	question = spaceBeforePunct.ReplaceAllString(question, "$1")
	return strings.TrimSpace(question)
}

// ValidateQuestion checks the question length in runes and returns the
// normalized form, or a ValidationError when the question is too short
// or too long. The limits apply to the question as typed, before any
// whitespace cleanup, so they match what the caller saw in the input
// field.
func ValidateQuestion(question string) (string, error) {
	switch n := utf8.RuneCountInString(question); {
	case n < minQuestionLen:
		return "", &ValidationError{Message: "Pytanie musi mieć przynajmniej 5 znaków."}
	case n > maxQuestionLen:
		return "", &ValidationError{Message: "Pytanie może mieć maksymalnie 100 znaków."}
	}
	return Normalize(question), nil
}
