// Package tokenizer converts text into provider-specific token counts and
// sequences. Implementations must be deterministic for a fixed input.
package tokenizer

import (
	"strings"
	"sync"
)

// Tokenizer encodes and decodes text for a specific model family.
type Tokenizer interface {
	// Count returns the number of tokens in text. Never negative.
	Count(text string) int
	// Encode returns the raw token sequence for text.
	Encode(text string) []int
	// Decode reconstructs text from a token sequence produced by Encode.
	Decode(tokens []int) string
}

// Words is a whitespace tokenizer: one token per word. Used in tests and as
// an offline fallback when no BPE data is available. The word vocabulary is
// built lazily per instance, so Decode round-trips anything this instance
// encoded. Whitespace runs collapse to single spaces on decode.
type Words struct {
	mu    sync.Mutex
	ids   map[string]int
	vocab []string
}

func NewWords() *Words {
	return &Words{ids: make(map[string]int)}
}

func (w *Words) Count(text string) int {
	return len(strings.Fields(text))
}

func (w *Words) Encode(text string) []int {
	w.mu.Lock()
	defer w.mu.Unlock()

	fields := strings.Fields(text)
	tokens := make([]int, 0, len(fields))
	for _, f := range fields {
		id, ok := w.ids[f]
		if !ok {
			id = len(w.vocab)
			w.ids[f] = id
			w.vocab = append(w.vocab, f)
		}
		tokens = append(tokens, id)
	}
	return tokens
}

func (w *Words) Decode(tokens []int) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	words := make([]string, 0, len(tokens))
	for _, id := range tokens {
		if id >= 0 && id < len(w.vocab) {
			words = append(words, w.vocab[id])
		}
	}
	return strings.Join(words, " ")
}
