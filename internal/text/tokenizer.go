// Package text turns captions into fixed-width conditioning vectors.
//
// A Tokenizer splits a caption into token ids and an Embedder folds the ids
// into a text_dim vector. Two tokenizers are available: Words, an offline
// vocabulary built from the captions themselves, and TikToken, which wraps
// the OpenAI BPE encodings.
package text

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer converts a caption to token ids.
type Tokenizer interface {
	Encode(text string) ([]int32, error)
	Name() string
}

// WordsName selects the Words tokenizer in New.
const WordsName = "words"

// New returns the tokenizer called name: "words" builds a Words vocabulary
// from corpus, anything else is treated as a tiktoken encoding name.
func New(name string, corpus []string) (Tokenizer, error) {
	if name == "" || name == WordsName {
		return NewWords(corpus), nil
	}
	return NewTikToken(name)
}

// Words is a lower-cased word vocabulary. Unknown words map to id 0.
type Words struct {
	vocab map[string]int32
}

// NewWords builds a vocabulary from every word in corpus. Ids are assigned
// in sorted order starting at 1 so the vocabulary does not depend on the
// order of the captions.
func NewWords(corpus []string) *Words {
	seen := make(map[string]struct{})
	for _, c := range corpus {
		for _, w := range splitWords(c) {
			seen[w] = struct{}{}
		}
	}
	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)

	vocab := make(map[string]int32, len(words))
	for i, w := range words {
		vocab[w] = int32(i + 1) //nolint:gosec // G115: vocabulary is far below 2^31.
	}
	return &Words{vocab: vocab}
}

// Encode returns one id per word of text.
func (w *Words) Encode(text string) ([]int32, error) {
	words := splitWords(text)
	ids := make([]int32, len(words))
	for i, word := range words {
		ids[i] = w.vocab[word]
	}
	return ids, nil
}

// Name returns "words".
func (w *Words) Name() string { return WordsName }

// VocabSize counts the known words plus the unknown id.
func (w *Words) VocabSize() int { return len(w.vocab) + 1 }

func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// TikToken wraps the pkoukk/tiktoken-go library.
//
// Supported encodings:
//   - cl100k_base: GPT-4, GPT-3.5-turbo
//   - p50k_base: GPT-3, Codex
//   - r50k_base: GPT-3, davinci
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikToken loads the named encoding. The BPE ranks are fetched on first
// use and cached by tiktoken-go, so this may need network access.
func NewTikToken(encodingName string) (*TikToken, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}
	return &TikToken{encoding: encoding, name: encodingName}, nil
}

// Encode converts text to token IDs.
func (t *TikToken) Encode(text string) ([]int32, error) {
	tokens := t.encoding.Encode(text, nil, nil)
	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) //nolint:gosec // G115: Token ID fits in int32 - vocab size < 2^31.
	}
	return result, nil
}

// Name returns the encoding name.
func (t *TikToken) Name() string { return t.name }
