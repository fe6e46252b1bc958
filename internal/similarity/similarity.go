// Package similarity provides string normalization and edit-distance
// similarity scoring for supplier names and transaction descriptions.
package similarity

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
)

// maxNormalizedLen bounds normalized text to keep edit-distance cost and
// stored key size predictable.
const maxNormalizedLen = 100

// Normalize lowercases text, strips everything except letters, digits and
// Scandinavian characters, collapses runs of whitespace, and truncates to
// a bounded length.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'å', r == 'ä', r == 'ö', r == 'ø', r == 'æ', r == 'é':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			// Punctuation and symbols are dropped entirely.
		}
	}

	normalized := strings.Join(strings.Fields(b.String()), " ")

	runes := []rune(normalized)
	if len(runes) > maxNormalizedLen {
		normalized = strings.TrimSpace(string(runes[:maxNormalizedLen]))
	}

	return normalized
}

// Score returns a similarity in [0, 1] between two strings, computed as
// 1 - distance/max(len). Two empty strings are identical: Score("", "") = 1.
// Score is symmetric: Score(a, b) == Score(b, a).
func Score(a, b string) float64 {
	lenA := len([]rune(a))
	lenB := len([]rune(b))

	maxLen := lenA
	if lenB > maxLen {
		maxLen = lenB
	}
	if maxLen == 0 {
		return 1.0
	}

	distance := levenshtein.Distance(a, b, nil)

	score := 1.0 - float64(distance)/float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}

// Tokens splits normalized text into its whitespace-separated tokens.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// SharedTokens counts tokens present in both slices. Comparison is exact;
// inputs are expected to already be normalized.
func SharedTokens(a, b []string) (count int, longest int) {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}

	for _, t := range b {
		if _, ok := set[t]; ok {
			count++
			if len(t) > longest {
				longest = len(t)
			}
			// Count each shared token once.
			delete(set, t)
		}
	}

	return count, longest
}
