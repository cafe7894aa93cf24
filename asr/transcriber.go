package asr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/schollz/progressbar/v3"

	"whisper-subs-go/audio"
	"whisper-subs-go/decoder"
)

// TranscriptStore caches finished window transcripts keyed by media, window
// index and model so a rerun over the same file skips decoding.
type TranscriptStore interface {
	Lookup(mediaKey string, window int, model string) (string, bool, error)
	Save(mediaKey string, window int, model string, text string) error
}

// Transcriber runs the full per-window pipeline: spectrogram, encoder,
// incremental decode, detokenization.
type Transcriber struct {
	cfg       *Config
	stepper   decoder.Stepper
	encoder   Encoder
	tokenizer Tokenizer

	store     TranscriptStore
	logger    *slog.Logger
	progress  bool
	modelName string
}

// TranscriberOption is a functional option for Transcriber
type TranscriberOption func(*Transcriber)

// NewTranscriber assembles a transcriber from its collaborators. The stepper
// and encoder must describe the same model as cfg.
func NewTranscriber(cfg *Config, stepper decoder.Stepper, encoder Encoder, tokenizer Tokenizer, opts ...TranscriberOption) *Transcriber {
	t := &Transcriber{
		cfg:       cfg,
		stepper:   stepper,
		encoder:   encoder,
		tokenizer: tokenizer,
		logger:    slog.Default(),
		modelName: "whisper-base",
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// WithStore enables transcript caching
func WithStore(store TranscriptStore) TranscriberOption {
	return func(t *Transcriber) {
		t.store = store
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) TranscriberOption {
	return func(t *Transcriber) {
		t.logger = logger
	}
}

// WithProgress enables a terminal progress bar across windows
func WithProgress() TranscriberOption {
	return func(t *Transcriber) {
		t.progress = true
	}
}

// WithModelName sets the model identifier used for store keys
func WithModelName(name string) TranscriberOption {
	return func(t *Transcriber) {
		t.modelName = name
	}
}

// Transcribe splits mono PCM into windows and transcribes each one.
// mediaKey identifies the source audio for the transcript store; pass ""
// to bypass caching.
func (t *Transcriber) Transcribe(ctx context.Context, samples []float32, opts *DecodeOptions, mediaKey string) ([]Transcript, error) {
	segments := SplitSamples(samples, t.cfg.SampleRate, t.cfg.WindowSeconds)
	return t.TranscribeSegments(ctx, segments, opts, mediaKey)
}

// TranscribeSegments transcribes prepared audio windows in order
func (t *Transcriber) TranscribeSegments(ctx context.Context, segments []Segment, opts *DecodeOptions, mediaKey string) ([]Transcript, error) {
	prefix, err := t.cfg.Tokens.ForcedPrefix(opts.Language, opts.Task)
	if err != nil {
		return nil, err
	}

	var bar *progressbar.ProgressBar
	if t.progress {
		bar = progressbar.Default(int64(len(segments)), "transcribing")
	}

	transcripts := make([]Transcript, 0, len(segments))
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tr, err := t.transcribeWindow(seg, prefix, opts, mediaKey)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", seg.Index, err)
		}
		transcripts = append(transcripts, tr)

		if bar != nil {
			bar.Add(1)
		}
	}

	return transcripts, nil
}

func (t *Transcriber) transcribeWindow(seg Segment, prefix []int, opts *DecodeOptions, mediaKey string) (Transcript, error) {
	if t.store != nil && mediaKey != "" {
		text, ok, err := t.store.Lookup(mediaKey, seg.Index, t.modelName)
		if err != nil {
			t.logger.Warn("transcript store lookup failed", "window", seg.Index, "error", err)
		} else if ok {
			t.logger.Debug("transcript served from store", "window", seg.Index)
			return Transcript{Segment: seg, Text: text, FromCache: true}, nil
		}
	}

	mel := audio.LogMel(seg.Samples)
	features, err := t.encoder.Encode(mel)
	if err != nil {
		return Transcript{}, fmt.Errorf("encoding audio: %w", err)
	}

	var tokens []int
	var avgLogProb float64
	if opts.BeamSize > 1 {
		tokens, avgLogProb, err = decodeBeam(t.stepper, features, prefix, t.cfg.Tokens, opts)
	} else {
		tokens, avgLogProb, err = decodeGreedy(t.stepper, features, prefix, t.cfg.Tokens, opts)
	}
	if err != nil {
		return Transcript{}, err
	}

	text, err := t.detokenize(tokens)
	if err != nil {
		return Transcript{}, fmt.Errorf("detokenizing: %w", err)
	}

	t.logger.Debug("window transcribed",
		"window", seg.Index,
		"tokens", len(tokens),
		"avg_logprob", avgLogProb)

	if t.store != nil && mediaKey != "" && text != "" {
		if err := t.store.Save(mediaKey, seg.Index, t.modelName, text); err != nil {
			t.logger.Warn("transcript store save failed", "window", seg.Index, "error", err)
		}
	}

	return Transcript{
		Segment:    seg,
		Text:       text,
		Tokens:     tokens,
		AvgLogProb: avgLogProb,
	}, nil
}

func (t *Transcriber) detokenize(tokens []int) (string, error) {
	text := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		if t.cfg.Tokens.IsSpecial(tok) {
			continue
		}
		text = append(text, tok)
	}
	if len(text) == 0 {
		return "", nil
	}

	out, err := t.tokenizer.Decode(text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Close releases the stepper, encoder and tokenizer
func (t *Transcriber) Close() error {
	var first error
	for _, c := range []func() error{t.stepper.Close, t.encoder.Close, t.tokenizer.Close} {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
