// Package utils provides tiktoken-based token counting utilities.
package utils

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter counts tokens for one encoding.
type TokenCounter struct {
	codec tokenizer.Codec
}

//nolint:gochecknoglobals // codecs are expensive to build and immutable once loaded
var (
	codecMu sync.Mutex
	codecs  = map[tokenizer.Encoding]tokenizer.Codec{}
)

// encodingFor picks o200k for the GPT-4o / o-series family and cl100k for
// everything else. Non-OpenAI models are approximated with cl100k.
func encodingFor(model string) tokenizer.Encoding {
	m := strings.ToLower(model)
	if strings.HasPrefix(m, "gpt-4o") || strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4") {
		return tokenizer.O200kBase
	}
	return tokenizer.Cl100kBase
}

// NewTokenCounter returns a counter for model. Codecs are cached per encoding.
func NewTokenCounter(model string) (*TokenCounter, error) {
	enc := encodingFor(model)

	codecMu.Lock()
	defer codecMu.Unlock()
	if codec, ok := codecs[enc]; ok {
		return &TokenCounter{codec: codec}, nil
	}
	codec, err := tokenizer.Get(enc)
	if err != nil {
		return nil, err
	}
	codecs[enc] = codec
	return &TokenCounter{codec: codec}, nil
}

// CountTokens returns the token count of text, falling back to len/4.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil || tc.codec == nil {
		return len(text) / 4
	}
	count, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// CountTokensSimple counts with the default encoding.
func CountTokensSimple(text string) int {
	counter, err := NewTokenCounter("")
	if err != nil {
		return len(text) / 4
	}
	return counter.CountTokens(text)
}

// CountForModel counts text with the encoding appropriate for model.
func CountForModel(model, text string) int {
	counter, err := NewTokenCounter(model)
	if err != nil {
		return len(text) / 4
	}
	return counter.CountTokens(text)
}

// TruncateToTokenLimit shortens text to roughly limit tokens. It cuts by
// characters in proportion to the overshoot, so the result is approximate.
func (tc *TokenCounter) TruncateToTokenLimit(text string, limit int) string {
	current := tc.CountTokens(text)
	if current <= limit {
		return text
	}
	charLimit := int(float64(len(text)) * float64(limit) / float64(current) * 0.9)
	if charLimit >= len(text) {
		return text
	}
	return text[:charLimit] + "..."
}
