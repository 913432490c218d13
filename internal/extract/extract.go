// Package extract locates address-shaped tokens in free text.
package extract

import (
	"iter"
	"regexp"
	"strings"
	"unicode"
)

// candidateRegex matches a whole whitespace-delimited run that looks like local@domain.tld.
// The local part is deliberately broader than what validation accepts (% and + allowed).
var candidateRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Candidates yields raw candidates in text order.
//
// A candidate must span an entire run of non-whitespace characters, so tokens glued to
// punctuation or other text outside the allowed character sets are skipped. A single
// whitespace character can bound the candidates on both sides of it.
func Candidates(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := -1
		for i, r := range text {
			if !isBoundary(r) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				if tok := text[start:i]; isCandidate(tok) && !yield(tok) {
					return
				}
				start = -1
			}
		}
		if start >= 0 {
			if tok := text[start:]; isCandidate(tok) {
				yield(tok)
			}
		}
	}
}

// FindAll returns every raw candidate in text order. It never returns nil.
func FindAll(text string) []string {
	out := []string{}
	for c := range Candidates(text) {
		out = append(out, c)
	}
	return out
}

func isCandidate(tok string) bool {
	// Cheap pre-check before the regex: most runs of page text have no '@'.
	if strings.IndexByte(tok, '@') < 0 {
		return false
	}
	return candidateRegex.MatchString(tok)
}

// isBoundary reports whether r separates tokens. U+FEFF is included because
// browsers treat it as whitespace in rendered text.
func isBoundary(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff'
}
