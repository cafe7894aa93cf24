package asr

import (
	"testing"
	"time"
)

func TestSplitSamplesPadsFinalWindow(t *testing.T) {
	// 4 Hz audio with 2 second windows: 10 samples make one full window
	// and one padded window holding half a second of real audio.
	samples := make([]float32, 10)
	for i := range samples {
		samples[i] = float32(i + 1)
	}

	segments := SplitSamples(samples, 4, 2)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}

	first := segments[0]
	if first.Offset != 0 || first.Length != 2*time.Second {
		t.Errorf("expected first window 0s+2s, got %v+%v", first.Offset, first.Length)
	}
	if len(first.Samples) != 8 {
		t.Errorf("expected 8 samples per window, got %d", len(first.Samples))
	}

	last := segments[1]
	if last.Offset != 2*time.Second {
		t.Errorf("expected last window offset 2s, got %v", last.Offset)
	}
	if last.Length != 500*time.Millisecond {
		t.Errorf("expected last window real length 500ms, got %v", last.Length)
	}
	if len(last.Samples) != 8 {
		t.Errorf("expected padded window of 8 samples, got %d", len(last.Samples))
	}
	if last.Samples[1] != 10 || last.Samples[2] != 0 {
		t.Errorf("expected padding after sample 10, got %v", last.Samples)
	}
}

func TestSplitSamplesEmptyInput(t *testing.T) {
	if segments := SplitSamples(nil, 16000, 30); segments != nil {
		t.Errorf("expected no segments for empty audio, got %d", len(segments))
	}
}

func TestSplitSamplesIndexesSequentially(t *testing.T) {
	segments := SplitSamples(make([]float32, 25), 4, 2)
	for i, seg := range segments {
		if seg.Index != i {
			t.Errorf("expected index %d, got %d", i, seg.Index)
		}
	}
}
