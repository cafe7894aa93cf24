// Package asr drives speech transcription: it owns the decoding loop and
// search strategy over a decoder.Stepper, audio windowing, subtitle output
// and transcript scoring.
package asr

import (
	"fmt"
)

// Config holds the model geometry and runtime settings for a transcription
// engine. Defaults describe whisper-base exported to ONNX.
type Config struct {
	ModelDir string

	NumLayers    int
	NumHeads     int
	Hidden       int
	VocabSize    int
	MaxPositions int

	// MaxCacheLen is the self-attention context bound: a populated slot at
	// this length is replaced, not extended, on the next step.
	MaxCacheLen int

	SampleRate    int
	WindowSeconds int

	Tokens SpecialTokens
}

// ConfigOption is a functional option for Config
type ConfigOption func(*Config)

// NewConfig creates a Config with whisper-base defaults
func NewConfig(modelDir string, opts ...ConfigOption) *Config {
	c := &Config{
		ModelDir:      modelDir,
		NumLayers:     6,
		NumHeads:      8,
		Hidden:        512,
		VocabSize:     51865,
		MaxPositions:  448,
		MaxCacheLen:   448,
		SampleRate:    16000,
		WindowSeconds: 30,
		Tokens:        DefaultSpecialTokens(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.validate(); err != nil {
		panic(err)
	}

	return c
}

func (c *Config) validate() error {
	if c.NumLayers < 1 {
		return fmt.Errorf("num_layers must be at least 1")
	}
	if c.Hidden < 1 || c.NumHeads < 1 || c.Hidden%c.NumHeads != 0 {
		return fmt.Errorf("hidden size %d must be divisible by %d heads", c.Hidden, c.NumHeads)
	}
	if c.VocabSize < 1 {
		return fmt.Errorf("vocab_size must be positive")
	}
	if c.MaxCacheLen < 1 || c.MaxCacheLen > c.MaxPositions {
		return fmt.Errorf("max_cache_len %d must be within (0, %d]", c.MaxCacheLen, c.MaxPositions)
	}
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate %d too low", c.SampleRate)
	}
	if c.WindowSeconds < 1 {
		return fmt.Errorf("window_seconds must be positive")
	}
	return nil
}

// WithModelDims sets the decoder geometry
func WithModelDims(layers, heads, hidden, vocab int) ConfigOption {
	return func(c *Config) {
		c.NumLayers = layers
		c.NumHeads = heads
		c.Hidden = hidden
		c.VocabSize = vocab
	}
}

// WithMaxPositions sets the positional table size and context bound together
func WithMaxPositions(n int) ConfigOption {
	return func(c *Config) {
		c.MaxPositions = n
		c.MaxCacheLen = n
	}
}

// WithMaxCacheLen sets only the cache replace-instead-of-append bound
func WithMaxCacheLen(n int) ConfigOption {
	return func(c *Config) {
		c.MaxCacheLen = n
	}
}

// WithWindowSeconds sets the audio window length
func WithWindowSeconds(n int) ConfigOption {
	return func(c *Config) {
		c.WindowSeconds = n
	}
}

// WithSpecialTokens overrides the special token table
func WithSpecialTokens(tokens SpecialTokens) ConfigOption {
	return func(c *Config) {
		c.Tokens = tokens
	}
}
