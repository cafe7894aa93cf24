package asr

import "fmt"

// DecodeOptions holds the search parameters for one transcription run
type DecodeOptions struct {
	Language    string
	Task        Task
	BeamSize    int
	Temperature float64
	MaxTokens   int

	// LengthPenalty normalizes beam scores by length^penalty when
	// comparing finished hypotheses.
	LengthPenalty float64
}

// DecodeOption is a functional option for DecodeOptions
type DecodeOption func(*DecodeOptions)

// NewDecodeOptions creates DecodeOptions with greedy defaults
func NewDecodeOptions(opts ...DecodeOption) *DecodeOptions {
	o := &DecodeOptions{
		Language:      "en",
		Task:          TaskTranscribe,
		BeamSize:      1,
		Temperature:   0,
		MaxTokens:     224,
		LengthPenalty: 1.0,
	}

	for _, opt := range opts {
		opt(o)
	}

	if err := o.validate(); err != nil {
		panic(err)
	}

	return o
}

func (o *DecodeOptions) validate() error {
	if o.BeamSize < 1 {
		return fmt.Errorf("beam size must be at least 1")
	}
	if o.BeamSize > 1 && o.Temperature > 0 {
		return fmt.Errorf("beam search and temperature sampling are mutually exclusive")
	}
	if o.MaxTokens < 1 {
		return fmt.Errorf("max tokens must be positive")
	}
	if o.LengthPenalty <= 0 {
		return fmt.Errorf("length penalty must be positive")
	}
	return nil
}

// WithLanguage sets the transcription language
func WithLanguage(lang string) DecodeOption {
	return func(o *DecodeOptions) {
		o.Language = lang
	}
}

// WithTask sets transcribe or translate
func WithTask(task Task) DecodeOption {
	return func(o *DecodeOptions) {
		o.Task = task
	}
}

// WithBeamSize enables beam search with the given width
func WithBeamSize(n int) DecodeOption {
	return func(o *DecodeOptions) {
		o.BeamSize = n
	}
}

// WithTemperature enables temperature sampling on the greedy path
func WithTemperature(t float64) DecodeOption {
	return func(o *DecodeOptions) {
		o.Temperature = t
	}
}

// WithMaxTokens caps the tokens generated per window
func WithMaxTokens(n int) DecodeOption {
	return func(o *DecodeOptions) {
		o.MaxTokens = n
	}
}

// WithLengthPenalty sets the beam length normalization exponent
func WithLengthPenalty(p float64) DecodeOption {
	return func(o *DecodeOptions) {
		o.LengthPenalty = p
	}
}
