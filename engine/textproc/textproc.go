// Package textproc normalizes raw resume and job text into stemmed,
// stop-word-filtered token sequences for lexical comparison.
package textproc

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball/english"
)

// nonAlphanumeric matches any run of characters outside [A-Za-z0-9].
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// escapes turns literal escape sequences (as pasted from JSON or logs) into
// spaces so "foo\nbar" does not leave a stray "n" token behind.
var escapes = strings.NewReplacer(`\n`, " ", `\r`, " ", `\t`, " ")

// strip replaces escapes and non-alphanumerics with spaces, keeping case.
func strip(text string) string {
	return nonAlphanumeric.ReplaceAllString(escapes.Replace(text), " ")
}

// Clean replaces every non-alphanumeric character with a space and lower-cases
// the result.
func Clean(text string) string {
	return strings.ToLower(strip(text))
}

// Words splits cleaned text into lower-case word tokens in reading order.
// Stop-words are kept; nothing is stemmed.
func Words(text string) []string {
	if text == "" {
		return []string{}
	}
	return strings.Fields(Clean(text))
}

// SurfaceWords is Words without lower-casing, so callers can show the word as
// the author wrote it. Element i of SurfaceWords and Words always refer to the
// same word.
func SurfaceWords(text string) []string {
	if text == "" {
		return []string{}
	}
	return strings.Fields(strip(text))
}

// Stem returns the Porter2 (English snowball) stem of a lower-case word.
func Stem(word string) string {
	return english.Stem(word, true)
}

// Tokenize returns the stemmed tokens of text with stop-words removed.
// Stop-words are matched before stemming. The result is never nil.
func Tokenize(text string) []string {
	words := Words(text)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if IsStopWord(w) {
			continue
		}
		tokens = append(tokens, Stem(w))
	}
	return tokens
}

// StemSet returns the set of tokens produced by Tokenize.
func StemSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
