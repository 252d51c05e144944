// Package reader provides the text primitives behind RSVP (Rapid Serial Visual Presentation)
// speed reading: splitting text into words and locating the focus character of a word.
package reader

import (
	"strings"
	"unicode/utf8"
)

// Tokenize splits text into words on runs of whitespace. Words keep their original
// punctuation and case, and reading order is preserved. Empty or whitespace-only text
// yields an empty, non-nil slice.
func Tokenize(text string) []string {
	words := strings.Fields(text)
	if words == nil {
		return []string{}
	}
	return words
}

// FocusIndex returns the rune position of the focus character of a word:
// floor(runeCount / 2).
func FocusIndex(word string) int {
	return utf8.RuneCountInString(word) / 2
}

// FocusSplit splits word around its focus character. The three parts are byte-exact
// sub-slices of word, so multi-byte characters are never cut in half.
func FocusSplit(word string) (before, focus, after string) {
	if word == "" {
		return "", "", ""
	}
	target := FocusIndex(word)
	n := 0
	for i, r := range word {
		if n == target {
			end := i + utf8.RuneLen(r)
			if r == utf8.RuneError {
				// Invalid bytes decode as a single-byte RuneError.
				_, size := utf8.DecodeRuneInString(word[i:])
				end = i + size
			}
			return word[:i], word[i:end], word[end:]
		}
		n++
	}
	return word, "", ""
}

// SentenceStarts returns indices of words that start sentences.
func SentenceStarts(words []string) []int {
	if len(words) == 0 {
		return nil
	}
	starts := []int{0}
	for i, word := range words {
		if endsSentence(word) && i+1 < len(words) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func endsSentence(word string) bool {
	word = strings.TrimRight(word, `"')]”’`)
	if word == "" {
		return false
	}
	last := word[len(word)-1]
	return last == '.' || last == '!' || last == '?'
}
