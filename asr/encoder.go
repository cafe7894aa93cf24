package asr

import (
	"fmt"

	"whisper-subs-go/decoder"
	"whisper-subs-go/tensor"
)

// Encoder turns a log-mel spectrogram into audio features for the decoder
type Encoder interface {
	// Encode takes a (1, mels, frames) spectrogram and returns
	// (1, positions, hidden) audio features.
	Encode(mel *tensor.Tensor) (*tensor.Tensor, error)

	// Close releases backend resources
	Close() error
}

const (
	encoderInputName  = "input_features"
	encoderOutputName = "last_hidden_state"
)

// EngineEncoder runs the audio encoder on a precompiled inference engine
type EngineEncoder struct {
	engine decoder.Engine
}

// NewEngineEncoder wraps an engine exposing the standard encoder graph
// (input_features in, last_hidden_state out).
func NewEngineEncoder(engine decoder.Engine) *EngineEncoder {
	return &EngineEncoder{engine: engine}
}

// Encode implements Encoder
func (e *EngineEncoder) Encode(mel *tensor.Tensor) (*tensor.Tensor, error) {
	if len(mel.Shape) != 3 {
		return nil, fmt.Errorf("spectrogram must be rank 3, got shape %v", mel.Shape)
	}

	shape := make([]int64, len(mel.Shape))
	for i, d := range mel.Shape {
		shape[i] = int64(d)
	}

	outputs, err := e.engine.Run([]decoder.NamedTensor{{
		Name:  encoderInputName,
		Shape: shape,
		Data:  mel.Data,
	}})
	if err != nil {
		return nil, fmt.Errorf("encoder run: %w", err)
	}

	for _, out := range outputs {
		if out.Name != encoderOutputName {
			continue
		}
		data, ok := out.Data.([]float32)
		if !ok {
			return nil, fmt.Errorf("encoder output %s is not float32", out.Name)
		}
		dims := make([]int, len(out.Shape))
		for i, d := range out.Shape {
			dims[i] = int(d)
		}
		return tensor.FromData(data, dims...), nil
	}
	return nil, fmt.Errorf("engine produced no %s output", encoderOutputName)
}

// Close implements Encoder
func (e *EngineEncoder) Close() error {
	return e.engine.Close()
}
