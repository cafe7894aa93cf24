package asr

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFileConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model.Backend != "onnx" {
		t.Errorf("expected default backend onnx, got %q", cfg.Model.Backend)
	}
	if cfg.Decode.Language != "en" {
		t.Errorf("expected default language en, got %q", cfg.Decode.Language)
	}
}

func TestLoadFileConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[model]
dir = "/opt/models/whisper-small"
backend = "direct"
name = "whisper-small"

[decode]
language = "de"
beam_size = 5

[output]
store = "transcripts.db"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Model.Backend != "direct" {
		t.Errorf("expected backend direct, got %q", cfg.Model.Backend)
	}
	if cfg.Decode.BeamSize != 5 {
		t.Errorf("expected beam_size 5, got %d", cfg.Decode.BeamSize)
	}
	if cfg.Decode.MaxTokens != 224 {
		t.Errorf("expected default max_tokens preserved, got %d", cfg.Decode.MaxTokens)
	}
	if cfg.Output.Store != "transcripts.db" {
		t.Errorf("expected store path, got %q", cfg.Output.Store)
	}
}

func TestLoadFileConfigRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[model]\nbackend = \"tpu\"\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := LoadFileConfig(path); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestWriteFileConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := DefaultFileConfig()
	cfg.Decode.Language = "ja"
	if err := WriteFileConfig(path, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Decode.Language != "ja" {
		t.Errorf("expected language ja, got %q", loaded.Decode.Language)
	}
}

func TestDecodeOptionsFromFileConfig(t *testing.T) {
	cfg := DefaultFileConfig()
	cfg.Decode.BeamSize = 3
	cfg.Decode.Language = "fr"

	opts := cfg.DecodeOptions()
	if opts.BeamSize != 3 {
		t.Errorf("expected beam size 3, got %d", opts.BeamSize)
	}
	if opts.Language != "fr" {
		t.Errorf("expected language fr, got %q", opts.Language)
	}
}
