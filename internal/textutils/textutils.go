// Package textutils provides text normalization and similarity helpers used
// by the matching engine to compare statement memos with ledger descriptions.
package textutils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentStripper removes combining marks after canonical decomposition, so
// "Pagamento Fornecedor" and "Pagaménto Fornecedór" normalize identically.
var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases the input, strips accents and replaces punctuation
// with spaces, collapsing any run of separators into one. The result is
// suitable for tokenization.
func Normalize(s string) string {
	folded, _, err := transform.String(accentStripper, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize splits a normalized string into its word tokens.
func Tokenize(s string) []string {
	return strings.Fields(Normalize(s))
}

// TokenOverlap returns the ratio of shared tokens between two strings,
// computed as |intersection| / max(|a|, |b|) over the distinct token sets.
// It is case- and accent-insensitive and ignores punctuation. Returns 0 when
// either side has no tokens.
func TokenOverlap(a, b string) float64 {
	tokensA := distinct(Tokenize(a))
	tokensB := distinct(Tokenize(b))
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	shared := 0
	for token := range tokensA {
		if _, ok := tokensB[token]; ok {
			shared++
		}
	}

	larger := len(tokensA)
	if len(tokensB) > larger {
		larger = len(tokensB)
	}
	return float64(shared) / float64(larger)
}

func distinct(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}
