package asr

import (
	"context"
	"fmt"
	"testing"

	"whisper-subs-go/tensor"
)

type fakeEncoder struct {
	calls int
}

func (e *fakeEncoder) Encode(mel *tensor.Tensor) (*tensor.Tensor, error) {
	e.calls++
	return tensor.NewTensor(1, 4, 4), nil
}

func (e *fakeEncoder) Close() error { return nil }

type fakeTokenizer struct{}

func (fakeTokenizer) Encode(text string) ([]int, error) { return nil, nil }

func (fakeTokenizer) Decode(tokenIDs []int) (string, error) {
	out := ""
	for _, id := range tokenIDs {
		out += fmt.Sprintf("<%d>", id)
	}
	return out, nil
}

func (fakeTokenizer) Close() error { return nil }

type memoryStore struct {
	entries map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: map[string]string{}}
}

func (s *memoryStore) key(mediaKey string, window int, model string) string {
	return fmt.Sprintf("%s/%d/%s", mediaKey, window, model)
}

func (s *memoryStore) Lookup(mediaKey string, window int, model string) (string, bool, error) {
	text, ok := s.entries[s.key(mediaKey, window, model)]
	return text, ok, nil
}

func (s *memoryStore) Save(mediaKey string, window int, model string, text string) error {
	s.entries[s.key(mediaKey, window, model)] = text
	return nil
}

func testTranscriber(stepper *scriptStepper, enc *fakeEncoder, opts ...TranscriberOption) *Transcriber {
	cfg := NewConfig("", WithSpecialTokens(testSpecial()), WithWindowSeconds(1))
	return NewTranscriber(cfg, stepper, enc, fakeTokenizer{}, opts...)
}

func TestTranscribeProducesOneTranscriptPerWindow(t *testing.T) {
	calls := 0
	stepper := &scriptStepper{rowLogits: func(call, row int) []float32 {
		calls++
		if calls%2 == 1 {
			return favoring(3)
		}
		return favoring(7)
	}}
	enc := &fakeEncoder{}

	tr := testTranscriber(stepper, enc)

	// 2.5 windows of audio at 1 second per window.
	samples := make([]float32, 40000)
	transcripts, err := tr.Transcribe(context.Background(), samples, NewDecodeOptions(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(transcripts) != 3 {
		t.Fatalf("expected 3 transcripts, got %d", len(transcripts))
	}
	if enc.calls != 3 {
		t.Errorf("expected 3 encoder calls, got %d", enc.calls)
	}
	for i, tr := range transcripts {
		if tr.Segment.Index != i {
			t.Errorf("transcript %d: expected window index %d, got %d", i, i, tr.Segment.Index)
		}
		if tr.Text != "<3>" {
			t.Errorf("transcript %d: expected text <3>, got %q", i, tr.Text)
		}
	}
}

func TestTranscribeServesRepeatRunsFromStore(t *testing.T) {
	stepper := &scriptStepper{rowLogits: func(call, row int) []float32 {
		if call%2 == 0 {
			return favoring(3)
		}
		return favoring(7)
	}}
	enc := &fakeEncoder{}
	cache := newMemoryStore()

	tr := testTranscriber(stepper, enc, WithStore(cache))

	samples := make([]float32, 16000)
	first, err := tr.Transcribe(context.Background(), samples, NewDecodeOptions(), "media1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first[0].FromCache {
		t.Error("expected first run to decode")
	}

	decodedCalls := enc.calls
	second, err := tr.Transcribe(context.Background(), samples, NewDecodeOptions(), "media1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !second[0].FromCache {
		t.Error("expected second run to hit the store")
	}
	if second[0].Text != first[0].Text {
		t.Errorf("expected cached text %q, got %q", first[0].Text, second[0].Text)
	}
	if enc.calls != decodedCalls {
		t.Errorf("expected no further encoder calls, got %d", enc.calls-decodedCalls)
	}
}

func TestTranscribeStopsOnCanceledContext(t *testing.T) {
	stepper := &scriptStepper{rowLogits: func(call, row int) []float32 {
		return favoring(7)
	}}

	tr := testTranscriber(stepper, &fakeEncoder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tr.Transcribe(ctx, make([]float32, 16000), NewDecodeOptions(), ""); err == nil {
		t.Error("expected error from canceled context")
	}
}

func TestTranscribeStripsControlTokensFromText(t *testing.T) {
	// The model emits a control token between text tokens; only text
	// should reach the tokenizer.
	seq := []int{3, 8, 5, 7}
	calls := 0
	stepper := &scriptStepper{rowLogits: func(call, row int) []float32 {
		row0 := favoring(seq[calls%len(seq)])
		calls++
		return row0
	}}

	tr := testTranscriber(stepper, &fakeEncoder{})

	transcripts, err := tr.Transcribe(context.Background(), make([]float32, 16000), NewDecodeOptions(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcripts[0].Text != "<3><5>" {
		t.Errorf("expected control tokens stripped, got %q", transcripts[0].Text)
	}
}
