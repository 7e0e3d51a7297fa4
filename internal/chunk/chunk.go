// Package chunk splits clean text into word-aligned pieces that fit a
// size-limited extraction backend.
package chunk

import (
	"errors"
	"iter"
	"strings"
	"unicode/utf8"
)

// DefaultSize is the default maximum chunk length in characters.
const DefaultSize = 4000

// ErrInvalidSize is returned for a non-positive maximum chunk size.
var ErrInvalidSize = errors.New("chunk: max chunk size must be positive")

// Split returns the chunks of text in order. Empty or whitespace-only text
// yields no chunks.
func Split(text string, maxChunkSize int) ([]string, error) {
	if maxChunkSize <= 0 {
		return nil, ErrInvalidSize
	}
	var out []string
	for c := range Seq(text, maxChunkSize) {
		out = append(out, c)
	}
	return out, nil
}

// Seq lazily yields the chunks of text. Each word costs its length plus one
// separator; a word that would push the running total past maxChunkSize
// starts a new chunk. A single word longer than the limit becomes its own
// chunk and is never split. Seq yields nothing when maxChunkSize <= 0.
func Seq(text string, maxChunkSize int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if maxChunkSize <= 0 {
			return
		}
		var current []string
		length := 0
		for _, word := range strings.Fields(text) {
			cost := utf8.RuneCountInString(word) + 1
			if length+cost > maxChunkSize && len(current) > 0 {
				if !yield(strings.Join(current, " ")) {
					return
				}
				current = current[:0]
				length = 0
			}
			current = append(current, word)
			length += cost
		}
		if len(current) > 0 {
			yield(strings.Join(current, " "))
		}
	}
}
