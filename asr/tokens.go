package asr

import "fmt"

// SpecialTokens holds the control token ids of the multilingual vocabulary.
// The decoder is steered with a forced prefix (start, language, task,
// timestamp mode) and a suppress list of tokens that must never be sampled.
type SpecialTokens struct {
	EndOfText         int
	StartOfTranscript int
	Translate         int
	Transcribe        int
	NoTimestamps      int

	// LanguageBase is the id of the first language token; languages are
	// laid out contiguously after StartOfTranscript.
	LanguageBase int

	// Suppress lists token ids removed from every sampling decision
	// (punctuation artifacts, special markers).
	Suppress []int
}

// DefaultSpecialTokens returns the multilingual whisper token layout
func DefaultSpecialTokens() SpecialTokens {
	return SpecialTokens{
		EndOfText:         50257,
		StartOfTranscript: 50258,
		LanguageBase:      50259,
		Translate:         50358,
		Transcribe:        50359,
		NoTimestamps:      50363,
		Suppress:          []int{50256, 50360, 50361, 50362},
	}
}

// languageOffsets maps ISO codes to their position after LanguageBase
var languageOffsets = map[string]int{
	"en": 0, "zh": 1, "de": 2, "es": 3, "ru": 4, "ko": 5, "fr": 6,
	"ja": 7, "pt": 8, "tr": 9, "pl": 10, "ca": 11, "nl": 12, "ar": 13,
	"sv": 14, "it": 15, "id": 16, "hi": 17, "fi": 18, "vi": 19,
}

// LanguageToken returns the token id for an ISO language code
func (t SpecialTokens) LanguageToken(lang string) (int, error) {
	off, ok := languageOffsets[lang]
	if !ok {
		return 0, fmt.Errorf("unknown language code %q", lang)
	}
	return t.LanguageBase + off, nil
}

// Task selects what the decoder produces
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// ForcedPrefix builds the decoder start sequence for a language and task.
// Timestamps are disabled; cue timing comes from the audio windows.
func (t SpecialTokens) ForcedPrefix(lang string, task Task) ([]int, error) {
	langTok, err := t.LanguageToken(lang)
	if err != nil {
		return nil, err
	}

	taskTok := t.Transcribe
	if task == TaskTranslate {
		taskTok = t.Translate
	} else if task != TaskTranscribe && task != "" {
		return nil, fmt.Errorf("unknown task %q", task)
	}

	return []int{t.StartOfTranscript, langTok, taskTok, t.NoTimestamps}, nil
}

// IsSpecial reports whether the id is a control token rather than text
func (t SpecialTokens) IsSpecial(id int) bool {
	return id >= t.EndOfText
}
