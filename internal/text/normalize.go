// Package text reads training corpora and prepares input text for the
// tokenizer.
package text

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

// Normalize prepares raw input text for tokenization.
// It trims surrounding whitespace, normalizes line endings to \n,
// and rejects empty or whitespace-only input.
func Normalize(s string) (string, error) {
	// Normalize line endings: CRLF → LF, then bare CR → LF.
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	s = strings.TrimSpace(s)

	if s == "" {
		return "", ErrEmptyText
	}

	return s, nil
}

// Form selects an optional Unicode normalization applied to corpus and
// input text before scanning or segmentation.
type Form string

const (
	FormNone Form = "none"
	FormNFC  Form = "nfc"
	FormNFKC Form = "nfkc"
)

// ParseForm maps a case-insensitive name to a Form. An empty string is
// FormNone.
func ParseForm(raw string) (Form, error) {
	f := Form(strings.ToLower(strings.TrimSpace(raw)))
	switch f {
	case "":
		return FormNone, nil
	case FormNone, FormNFC, FormNFKC:
		return f, nil
	default:
		return "", fmt.Errorf("invalid normalization form %q (expected %s|%s|%s)", raw, FormNone, FormNFC, FormNFKC)
	}
}

// Apply returns s in the form f. FormNone returns s unchanged.
func (f Form) Apply(s string) string {
	switch f {
	case FormNFC:
		return norm.NFC.String(s)
	case FormNFKC:
		return norm.NFKC.String(s)
	default:
		return s
	}
}
