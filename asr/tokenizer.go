package asr

import (
	"fmt"
	"path/filepath"

	"github.com/daulet/tokenizers"
)

// Tokenizer converts between text and token ids
type Tokenizer interface {
	// Encode converts text to token IDs
	Encode(text string) ([]int, error)

	// Decode converts token IDs to text, dropping control tokens
	Decode(tokenIDs []int) (string, error)

	// Close releases the underlying tokenizer
	Close() error
}

// hfTokenizer wraps a HuggingFace tokenizer.json vocabulary
type hfTokenizer struct {
	tk *tokenizers.Tokenizer
}

// NewTokenizer loads tokenizer.json from the model directory
func NewTokenizer(modelDir string) (Tokenizer, error) {
	path := filepath.Join(modelDir, "tokenizer.json")
	tk, err := tokenizers.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer from %s: %w", path, err)
	}
	return &hfTokenizer{tk: tk}, nil
}

// Encode implements Tokenizer
func (t *hfTokenizer) Encode(text string) ([]int, error) {
	ids, _ := t.tk.Encode(text, false)
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out, nil
}

// Decode implements Tokenizer
func (t *hfTokenizer) Decode(tokenIDs []int) (string, error) {
	ids := make([]uint32, len(tokenIDs))
	for i, id := range tokenIDs {
		if id < 0 {
			return "", fmt.Errorf("negative token id %d", id)
		}
		ids[i] = uint32(id)
	}
	return t.tk.Decode(ids, true), nil
}

// Close implements Tokenizer
func (t *hfTokenizer) Close() error {
	t.tk.Close()
	return nil
}
