package asr

import (
	"math"
	"testing"
)

func TestWERIdenticalTextsScoreZero(t *testing.T) {
	if got := WER("the quick brown fox", "the quick brown fox"); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestWERCountsSubstitutions(t *testing.T) {
	got := WER("the quick brown fox", "the slow brown fox")
	if got != 0.25 {
		t.Errorf("expected 0.25, got %v", got)
	}
}

func TestWERIgnoresCaseAndPunctuation(t *testing.T) {
	if got := WER("Hello, world!", "hello world"); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestWERCountsInsertionsAndDeletions(t *testing.T) {
	if got := WER("a b c d", "a b c"); got != 0.25 {
		t.Errorf("expected deletion rate 0.25, got %v", got)
	}
	if got := WER("a b c", "a b c d"); math.Abs(got-1.0/3.0) > 1e-12 {
		t.Errorf("expected insertion rate 1/3, got %v", got)
	}
}

func TestWEREmptyTexts(t *testing.T) {
	if got := WER("", ""); got != 0 {
		t.Errorf("expected 0 for two empty texts, got %v", got)
	}
	if got := WER("", "something"); got != 1 {
		t.Errorf("expected 1 for empty reference, got %v", got)
	}
	if got := WER("something", ""); got != 1 {
		t.Errorf("expected 1 for empty hypothesis, got %v", got)
	}
}

func TestCERCountsCharacterEdits(t *testing.T) {
	// "abcd" vs "abed": one substitution over four characters.
	if got := CER("abcd", "abed"); got != 0.25 {
		t.Errorf("expected 0.25, got %v", got)
	}
}

func TestCERCollapsesSpaces(t *testing.T) {
	if got := CER("ab cd", "abcd"); got != 0 {
		t.Errorf("expected 0 with spaces collapsed, got %v", got)
	}
}
