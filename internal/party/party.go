// Package party defines the closed set of political parties whose election
// programs the service answers questions about.
//
// A Party value scopes both the document corpus and the answer cache: the same
// question asked against two parties is two independent cache keys, and
// similarity search never crosses party boundaries.
package party

import (
	"errors"
	"fmt"
)

// ErrUnknown indicates a party identifier outside the supported set.
var ErrUnknown = errors.New("unknown party")

// Party identifies a political party. The zero value is invalid.
type Party string

// Supported parties. The string values double as URL slugs and database keys,
// so they must never change for an already-ingested corpus.
const (
	KoalicjaObywatelska  Party = "koalicja-obywatelska"
	PrawoISprawiedliwosc Party = "prawo-i-sprawiedliwosc"
	Konfederacja         Party = "konfederacja"
	Lewica               Party = "lewica"
	PSL                  Party = "psl"
)

// displayNames maps each party to the full name used in prompts and the UI.
var displayNames = map[Party]string{
	KoalicjaObywatelska:  "Koalicja Obywatelska",
	PrawoISprawiedliwosc: "Prawo i Sprawiedliwość",
	Konfederacja:         "Konfederacja",
	Lewica:               "Lewica",
	PSL:                  "Polskie Stronnictwo Ludowe",
}

// All returns the supported parties in a stable order.
func All() []Party {
	return []Party{
		KoalicjaObywatelska,
		PrawoISprawiedliwosc,
		Konfederacja,
		Lewica,
		PSL,
	}
}

// Parse validates a party identifier string.
func Parse(s string) (Party, error) {
	p := Party(s)
	if _, ok := displayNames[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknown, s)
	}
	return p, nil
}

// Valid reports whether p is one of the supported parties.
func (p Party) Valid() bool {
	_, ok := displayNames[p]
	return ok
}

// DisplayName returns the full party name for prompts and display.
// Returns the raw identifier for unknown values so callers never render an
// empty name.
func (p Party) DisplayName() string {
	if name, ok := displayNames[p]; ok {
		return name
	}
	return string(p)
}

// String implements fmt.Stringer.
func (p Party) String() string {
	return string(p)
}
