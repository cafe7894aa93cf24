package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"whisper-subs-go/asr"
	"whisper-subs-go/audio"
	"whisper-subs-go/decoder"
	"whisper-subs-go/store"
	"whisper-subs-go/tensor"
)

func transcribeCommand() *cobra.Command {
	var (
		language string
		beamSize int
		backend  string
		modelDir string
		outDir   string
	)

	cmd := &cobra.Command{
		Use:   "transcribe <media>...",
		Short: "Transcribe media files to .srt subtitles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileCfg, err := asr.LoadFileConfig(configPath)
			if err != nil {
				return err
			}
			if language != "" {
				fileCfg.Decode.Language = language
			}
			if beamSize > 0 {
				fileCfg.Decode.BeamSize = beamSize
			}
			if backend != "" {
				fileCfg.Model.Backend = backend
			}
			if modelDir != "" {
				fileCfg.Model.Dir = modelDir
			}
			if outDir != "" {
				fileCfg.Output.Dir = outDir
			}

			transcriber, err := buildTranscriber(fileCfg)
			if err != nil {
				return err
			}
			defer transcriber.Close()

			opts := fileCfg.DecodeOptions()
			for _, path := range args {
				if err := transcribeOne(cmd, transcriber, fileCfg, opts, path); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "transcription language (ISO code)")
	cmd.Flags().IntVarP(&beamSize, "beam", "b", 0, "beam width, 1 for greedy")
	cmd.Flags().StringVar(&backend, "backend", "", "decoder backend: onnx or direct")
	cmd.Flags().StringVar(&modelDir, "model-dir", "", "model directory")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "subtitle output directory")

	return cmd
}

func transcribeOne(cmd *cobra.Command, transcriber *asr.Transcriber, cfg *asr.FileConfig, opts *asr.DecodeOptions, path string) error {
	ctx := cmd.Context()

	mediaKey := ""
	if cfg.Output.Store != "" {
		key, err := audio.ContentKey(path)
		if err != nil {
			return err
		}
		mediaKey = key
	}

	slog.Info("extracting audio", "file", path)
	samples, err := audio.ExtractPCM(ctx, path)
	if err != nil {
		return err
	}

	transcripts, err := transcriber.Transcribe(ctx, samples, opts, mediaKey)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(cfg.Output.Dir, base+".srt")
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := asr.WriteSRT(f, asr.Cues(transcripts)); err != nil {
		return err
	}

	fmt.Printf("✓ %s: %d cues written to %s\n", path, len(asr.Cues(transcripts)), outPath)
	return nil
}

// buildTranscriber assembles the pipeline for the configured backend. The
// encoder always runs on ONNX; "direct" selects the in-process decoder.
func buildTranscriber(fileCfg *asr.FileConfig) (*asr.Transcriber, error) {
	cfg := asr.NewConfig(fileCfg.Model.Dir)

	if err := decoder.InitRuntime(fileCfg.Model.ONNXLibrary); err != nil {
		return nil, fmt.Errorf("initializing onnxruntime: %w", err)
	}

	encEngine, err := decoder.NewONNXEngine(
		filepath.Join(cfg.ModelDir, "encoder.onnx"),
		[]string{"input_features"},
		[]string{"last_hidden_state"})
	if err != nil {
		return nil, fmt.Errorf("loading encoder: %w", err)
	}
	encoder := asr.NewEngineEncoder(encEngine)

	var stepper decoder.Stepper
	switch fileCfg.Model.Backend {
	case "direct":
		model, err := tensor.LoadDecoderModel(
			filepath.Join(cfg.ModelDir, "model.safetensors"),
			&tensor.DecoderConfig{
				VocabSize:    cfg.VocabSize,
				MaxPositions: cfg.MaxPositions,
				Hidden:       cfg.Hidden,
				NumHeads:     cfg.NumHeads,
				NumLayers:    cfg.NumLayers,
			})
		if err != nil {
			return nil, fmt.Errorf("loading decoder weights: %w", err)
		}
		stepper = decoder.NewDirectStepper(model, cfg.MaxCacheLen)

	case "onnx":
		engine, err := decoder.NewONNXEngine(
			filepath.Join(cfg.ModelDir, "decoder.onnx"),
			decoder.EngineInputNames(cfg.NumLayers),
			decoder.EngineOutputNames(cfg.NumLayers))
		if err != nil {
			return nil, fmt.Errorf("loading decoder graph: %w", err)
		}
		stepper = decoder.NewEngineStepper(engine, cfg.NumLayers, cfg.Hidden, cfg.MaxCacheLen)

	default:
		return nil, fmt.Errorf("unknown backend %q", fileCfg.Model.Backend)
	}

	tokenizer, err := asr.NewTokenizer(cfg.ModelDir)
	if err != nil {
		return nil, err
	}

	topts := []asr.TranscriberOption{asr.WithModelName(fileCfg.Model.Name)}
	if fileCfg.Output.Progress {
		topts = append(topts, asr.WithProgress())
	}
	if fileCfg.Output.Store != "" {
		s, err := store.Open(fileCfg.Output.Store)
		if err != nil {
			return nil, err
		}
		topts = append(topts, asr.WithStore(s))
	}

	return asr.NewTranscriber(cfg, stepper, encoder, tokenizer, topts...), nil
}
