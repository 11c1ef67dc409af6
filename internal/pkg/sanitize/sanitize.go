// Package sanitize reduces strings to the ASCII subset the relational backend
// accepts, and checks password hashes against their encoding alphabet.
package sanitize

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrCorruptHash is returned when too much of a hash falls outside its alphabet.
var ErrCorruptHash = errors.New("password hash corrupted")

// maxStrippedRatio is the share of hash characters that may be dropped before
// the hash is treated as corrupted.
const maxStrippedRatio = 0.10

var punctuation = strings.NewReplacer(
	"\u2014", "-", // em dash
	"\u2013", "-", // en dash
	"\u2012", "-",
	"\u2212", "-",
	"\u201c", `"`,
	"\u201d", `"`,
	"\u201e", `"`,
	"\u2018", "'",
	"\u2019", "'",
	"\u201a", "'",
	"\u2026", "...",
	"\u00a0", " ", // no-break space
	"\u2009", " ",
	"\u202f", " ",
)

// Text normalizes smart punctuation, strips diacritics and drops every byte
// that is still outside ASCII. Lossy and deterministic.
func Text(s string) string {
	if isASCII(s) {
		return s
	}
	s = punctuation.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] < unicode.MaxASCII+1 {
			b = append(b, s[i])
		}
	}
	return string(b)
}

// Hash keeps only characters of the bcrypt alphabet ([./0-9A-Za-z] plus the
// '$' separators). A hash that loses more than 10% of its characters is
// rejected instead of being stored corrupted.
func Hash(h string) (string, error) {
	if h == "" {
		return "", fmt.Errorf("empty hash: %w", ErrCorruptHash)
	}
	n := 0
	b := make([]byte, 0, len(h))
	for _, r := range h {
		n++
		if isHashChar(r) {
			b = append(b, byte(r))
		}
	}
	stripped := n - len(b)
	if float64(stripped) > float64(n)*maxStrippedRatio {
		return "", fmt.Errorf("%d of %d characters outside the hash alphabet: %w", stripped, n, ErrCorruptHash)
	}
	return string(b), nil
}

func isHashChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.' || r == '/' || r == '$':
		return true
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}
