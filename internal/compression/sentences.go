// Package compression implements the Compressor and TokenBudgeter stages:
// BM25 sentence scoring, selection, and greedy token-budget enforcement.
package compression

import (
	"strings"
	"unicode"
)

// commonAbbreviations are not treated as sentence boundaries even though they
// end with a period.
var commonAbbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sr": true, "jr": true, "vs": true, "etc": true, "inc": true,
	"ltd": true, "co": true, "e.g": true, "i.e": true, "approx": true,
	"fig": true, "no": true, "vol": true, "u.s": true, "u.k": true,
}

// splitSentences splits text into sentences, treating '.', '!', '?' as
// boundaries while guarding against common abbreviations, and is safe over
// non-ASCII input since it operates on runes.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			if r == '.' && isAbbreviation(current.String()) {
				continue
			}
			// Only split when the punctuation ends the text or is followed by
			// whitespace or an uppercase letter; anything else (a digit as in
			// "3.5", a lowercase letter, more punctuation as in "...") continues
			// the current sentence.
			if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) && !unicode.IsUpper(runes[i+1]) {
				continue
			}
			sentence := strings.TrimSpace(current.String())
			if len(sentence) > 0 {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}

	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		sentences = append(sentences, remaining)
	}

	return sentences
}

func isAbbreviation(s string) bool {
	trimmed := strings.TrimSuffix(strings.TrimSpace(s), ".")
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return false
	}
	last := strings.ToLower(fields[len(fields)-1])
	return commonAbbreviations[last]
}

// tokenize splits text into lowercase word tokens for BM25 term frequency.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.ToLower(f)
	}
	return out
}

// estimateTokens approximates token count as roughly 4 bytes of text per
// token (at least 1 for non-empty text).
func estimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}
