// Package normalize maps words and prefixes to the form they are indexed under.
package normalize

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Mode selects how input text is normalized before it reaches the index.
type Mode string

const (
	// ModeNone keeps text byte-for-byte.
	ModeNone Mode = "none"
	// ModeNFC applies Unicode canonical composition.
	ModeNFC Mode = "nfc"
	// ModeFold applies NFC and then Unicode case folding.
	ModeFold Mode = "fold"
)

// Func normalizes a single word or prefix.
type Func func(string) string

// ParseMode validates a mode name. The empty string means ModeNone.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeNone:
		return ModeNone, nil
	case ModeNFC, ModeFold:
		return m, nil
	default:
		return "", fmt.Errorf("unknown normalization mode: %q", s)
	}
}

// New returns the normalizer for mode.
func New(mode Mode) (Func, error) {
	switch mode {
	case "", ModeNone:
		return func(s string) string { return s }, nil
	case ModeNFC:
		return norm.NFC.String, nil
	case ModeFold:
		// cases.Caser is stateful, so each call gets its own
		return func(s string) string {
			return cases.Fold().String(norm.NFC.String(s))
		}, nil
	default:
		return nil, fmt.Errorf("unknown normalization mode: %q", mode)
	}
}
