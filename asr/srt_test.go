package asr

import (
	"strings"
	"testing"
	"time"
)

func TestWriteSRTFormatsTimestamps(t *testing.T) {
	cues := []Cue{
		{Index: 1, Start: 0, End: 30 * time.Second, Text: "hello there"},
		{Index: 2, Start: 30 * time.Second, End: 61*time.Second + 250*time.Millisecond, Text: "second cue"},
	}

	var buf strings.Builder
	if err := WriteSRT(&buf, cues); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "1\n00:00:00,000 --> 00:00:30,000\nhello there\n\n" +
		"2\n00:00:30,000 --> 00:01:01,250\nsecond cue\n\n"
	if buf.String() != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, buf.String())
	}
}

func TestParseSRTRoundTrip(t *testing.T) {
	cues := []Cue{
		{Index: 1, Start: 5 * time.Second, End: 10 * time.Second, Text: "first"},
		{Index: 2, Start: time.Hour + 2*time.Minute, End: time.Hour + 2*time.Minute + 3*time.Second, Text: "line one\nline two"},
	}

	var buf strings.Builder
	if err := WriteSRT(&buf, cues); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := ParseSRT(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parsed) != len(cues) {
		t.Fatalf("expected %d cues, got %d", len(cues), len(parsed))
	}
	for i := range cues {
		if parsed[i] != cues[i] {
			t.Errorf("cue %d: expected %+v, got %+v", i, cues[i], parsed[i])
		}
	}
}

func TestParseSRTToleratesCRLF(t *testing.T) {
	input := "1\r\n00:00:01,000 --> 00:00:02,000\r\ntext\r\n\r\n"
	cues, err := ParseSRT(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cues) != 1 || cues[0].Text != "text" {
		t.Errorf("expected one cue with text %q, got %+v", "text", cues)
	}
}

func TestParseSRTRejectsMalformedIndex(t *testing.T) {
	input := "not-a-number\n00:00:01,000 --> 00:00:02,000\ntext\n"
	if _, err := ParseSRT(strings.NewReader(input)); err == nil {
		t.Error("expected error for malformed cue index")
	}
}

func TestCuesSkipsEmptyWindows(t *testing.T) {
	transcripts := []Transcript{
		{Segment: Segment{Index: 0, Offset: 0, Length: 30 * time.Second}, Text: "speech"},
		{Segment: Segment{Index: 1, Offset: 30 * time.Second, Length: 30 * time.Second}, Text: ""},
		{Segment: Segment{Index: 2, Offset: 60 * time.Second, Length: 12 * time.Second}, Text: "more"},
	}

	cues := Cues(transcripts)
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	if cues[1].Index != 2 {
		t.Errorf("expected renumbered index 2, got %d", cues[1].Index)
	}
	if cues[1].Start != 60*time.Second || cues[1].End != 72*time.Second {
		t.Errorf("expected cue timed 60s-72s, got %v-%v", cues[1].Start, cues[1].End)
	}
}
