// Package search builds FTS5 match expressions from user queries. Queries
// are tokenized the same way the index tokenizes stored text, so a term that
// indexed will match verbatim.
package search

import (
	"strings"
	"unicode"
)

// Highlight markers injected around matched spans by the index's
// highlight() function.
const (
	HighlightStart = "<mark>"
	HighlightEnd   = "</mark>"
)

// Tokenize splits text into lowercase terms on any non-alphanumeric rune,
// mirroring the unicode61 tokenizer used by the index.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// BuildMatch converts a free-text query into a safe FTS5 MATCH expression.
// Every term is double-quoted so user input can never inject FTS5 query
// syntax; the final term matches as a prefix so typing feels incremental.
// Returns "" when the query has no indexable terms.
func BuildMatch(query string) string {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return ""
	}

	var b strings.Builder
	for i, term := range terms {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('"')
		b.WriteString(term)
		b.WriteByte('"')
		if i == len(terms)-1 {
			b.WriteByte('*')
		}
	}
	return b.String()
}
