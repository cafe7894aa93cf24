package asr

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// FileConfig is the on-disk pipeline configuration
type FileConfig struct {
	Model  ModelSection  `toml:"model"`
	Decode DecodeSection `toml:"decode"`
	Output OutputSection `toml:"output"`
}

// ModelSection configures the model files and execution backend
type ModelSection struct {
	// Dir holds the model files (weights, tokenizer.json, ONNX graphs).
	Dir string `toml:"dir"`

	// Backend selects the execution path: "onnx" or "direct".
	Backend string `toml:"backend"`

	// ONNXLibrary is the path to the onnxruntime shared library.
	ONNXLibrary string `toml:"onnx_library"`

	Name string `toml:"name"`
}

// DecodeSection configures the search strategy
type DecodeSection struct {
	Language      string  `toml:"language"`
	Task          string  `toml:"task"`
	BeamSize      int     `toml:"beam_size"`
	Temperature   float64 `toml:"temperature"`
	MaxTokens     int     `toml:"max_tokens"`
	LengthPenalty float64 `toml:"length_penalty"`
}

// OutputSection configures subtitle output and the transcript store
type OutputSection struct {
	Dir      string `toml:"dir"`
	Store    string `toml:"store"`
	Progress bool   `toml:"progress"`
}

// DefaultFileConfig returns the configuration used when no file exists
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		Model: ModelSection{
			Dir:     "models/whisper-base",
			Backend: "onnx",
			Name:    "whisper-base",
		},
		Decode: DecodeSection{
			Language:      "en",
			Task:          string(TaskTranscribe),
			BeamSize:      1,
			MaxTokens:     224,
			LengthPenalty: 1.0,
		},
		Output: OutputSection{
			Dir:      ".",
			Progress: true,
		},
	}
}

// LoadFileConfig reads a TOML config, falling back to defaults for a
// missing file. Values absent from the file keep their defaults.
func LoadFileConfig(path string) (*FileConfig, error) {
	cfg := DefaultFileConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// WriteFileConfig writes the config as TOML, creating parent directories
func WriteFileConfig(path string, cfg *FileConfig) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *FileConfig) validate() error {
	switch c.Model.Backend {
	case "onnx", "direct":
	default:
		return fmt.Errorf("unknown backend %q", c.Model.Backend)
	}
	if c.Decode.BeamSize < 1 {
		return fmt.Errorf("beam_size must be at least 1")
	}
	if c.Decode.BeamSize > 1 && c.Decode.Temperature > 0 {
		return fmt.Errorf("beam_size and temperature are mutually exclusive")
	}
	return nil
}

// DecodeOptions converts the decode section to runtime options
func (c *FileConfig) DecodeOptions() *DecodeOptions {
	opts := []DecodeOption{
		WithLanguage(c.Decode.Language),
		WithTask(Task(c.Decode.Task)),
		WithBeamSize(c.Decode.BeamSize),
		WithTemperature(c.Decode.Temperature),
	}
	if c.Decode.MaxTokens > 0 {
		opts = append(opts, WithMaxTokens(c.Decode.MaxTokens))
	}
	if c.Decode.LengthPenalty > 0 {
		opts = append(opts, WithLengthPenalty(c.Decode.LengthPenalty))
	}
	return NewDecodeOptions(opts...)
}
