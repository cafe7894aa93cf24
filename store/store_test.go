package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "transcripts.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLookupMissReturnsFalse(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Lookup("abc", 0, "whisper-base")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected miss for empty store")
	}
}

func TestSaveThenLookup(t *testing.T) {
	s := openTestStore(t)

	if err := s.Save("abc", 3, "whisper-base", "hello there"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text, ok, err := s.Lookup("abc", 3, "whisper-base")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || text != "hello there" {
		t.Errorf("expected hit with %q, got ok=%v text=%q", "hello there", ok, text)
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	s := openTestStore(t)

	s.Save("abc", 0, "whisper-base", "first")
	s.Save("abc", 0, "whisper-base", "second")

	text, ok, _ := s.Lookup("abc", 0, "whisper-base")
	if !ok || text != "second" {
		t.Errorf("expected replacement %q, got %q", "second", text)
	}
}

func TestLookupKeyedByModel(t *testing.T) {
	s := openTestStore(t)

	s.Save("abc", 0, "whisper-base", "base text")

	_, ok, err := s.Lookup("abc", 0, "whisper-small")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected miss for a different model")
	}
}

func TestPurgeRemovesAllWindows(t *testing.T) {
	s := openTestStore(t)

	s.Save("abc", 0, "whisper-base", "one")
	s.Save("abc", 1, "whisper-base", "two")
	s.Save("xyz", 0, "whisper-base", "keep")

	n, err := s.Purge("abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows purged, got %d", n)
	}

	if _, ok, _ := s.Lookup("abc", 0, "whisper-base"); ok {
		t.Error("expected purge to remove window 0")
	}
	if _, ok, _ := s.Lookup("xyz", 0, "whisper-base"); !ok {
		t.Error("expected other media to survive purge")
	}
}
