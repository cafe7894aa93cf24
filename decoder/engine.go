package decoder

import (
	"fmt"

	"whisper-subs-go/tensor"
)

// NamedTensor is one entry of the engine's flat input/output contract.
// Data is []float32 for features, cache slots and logits, and []int64 for
// the token batch.
type NamedTensor struct {
	Name  string
	Shape []int64
	Data  any
}

// Engine executes a precompiled computation graph: given every declared
// input as a named tensor it returns every declared output. Execution is an
// atomic blocking call.
type Engine interface {
	Run(inputs []NamedTensor) ([]NamedTensor, error)
	Close() error
}

// EngineStepper drives a precompiled decoder graph. It owns the translation
// between the cache mapping and the engine's flat namespace: on the way in,
// every cache slot is materialized as an input even when not yet populated
// (zero-length placeholders for cold self slots); on the way out, every
// named result is demapped back into slot identifier space.
type EngineStepper struct {
	engine     Engine
	numLayers  int
	featureDim int
	maxSelfLen int
}

// NewEngineStepper wraps an engine for a model with the given decoder layer
// count and feature dimension (used to size placeholder slots).
func NewEngineStepper(engine Engine, numLayers, featureDim, maxSelfLen int) *EngineStepper {
	return &EngineStepper{
		engine:     engine,
		numLayers:  numLayers,
		featureDim: featureDim,
		maxSelfLen: maxSelfLen,
	}
}

// Step implements Stepper
func (e *EngineStepper) Step(tokens [][]int, features *tensor.Tensor, cache *Cache) (*StepResult, error) {
	if err := validateStep(tokens, features, cache); err != nil {
		return nil, err
	}

	batch := len(tokens)
	width := len(tokens[0])
	preLen := cache.SelfLen()

	inputs := make([]NamedTensor, 0, 2+e.numLayers*4)

	flat := make([]int64, batch*width)
	for b, row := range tokens {
		for s, tok := range row {
			flat[b*width+s] = int64(tok)
		}
	}
	inputs = append(inputs, NamedTensor{
		Name:  TokensName,
		Shape: []int64{int64(batch), int64(width)},
		Data:  flat,
	})

	// Features are a declared input on every step. Once the cross slots are
	// cached the graph ignores them, so a warm step without features feeds a
	// zero-length placeholder.
	if features != nil {
		inputs = append(inputs, NamedTensor{
			Name:  FeaturesName,
			Shape: shape64(features.Shape),
			Data:  features.Data,
		})
	} else {
		inputs = append(inputs, NamedTensor{
			Name:  FeaturesName,
			Shape: []int64{int64(batch), 0, int64(e.featureDim)},
			Data:  []float32{},
		})
	}

	for _, slot := range allSlots(e.numLayers) {
		if t, ok := cache.Get(slot); ok {
			inputs = append(inputs, NamedTensor{
				Name:  InputName(slot),
				Shape: shape64(t.Shape),
				Data:  t.Data,
			})
			continue
		}
		inputs = append(inputs, NamedTensor{
			Name:  InputName(slot),
			Shape: []int64{int64(batch), 0, int64(e.featureDim)},
			Data:  []float32{},
		})
	}

	outputs, err := e.engine.Run(inputs)
	if err != nil {
		return nil, &EngineError{Err: err}
	}

	var logits *tensor.Tensor
	for _, out := range outputs {
		if out.Name == LogitsName {
			logits, err = toTensor(out)
			if err != nil {
				return nil, err
			}
			continue
		}
		slot, ok := ParseOutputName(out.Name)
		if !ok {
			continue
		}
		t, err := toTensor(out)
		if err != nil {
			return nil, err
		}
		// The graph emits each self slot as past plus this step's
		// contribution. At the context bound the slot takes the fresh-start
		// path: only the new positions survive, matching the direct
		// backend's replace policy.
		if slot.Kind.IsSelf() && e.maxSelfLen > 0 && preLen >= e.maxSelfLen {
			t = tensor.TailSeq(t, width)
		}
		cache.Set(slot, t)
	}
	if logits == nil {
		return nil, &EngineError{Err: fmt.Errorf("engine returned no %q output", LogitsName)}
	}

	return &StepResult{Logits: logits, Cache: cache}, nil
}

// Reindex implements Stepper
func (e *EngineStepper) Reindex(cache *Cache, indices []int) (*Cache, error) {
	return cache.Reindex(indices)
}

// Reset implements Stepper
func (e *EngineStepper) Reset() *Cache {
	return NewCache(e.maxSelfLen)
}

// Close implements Stepper
func (e *EngineStepper) Close() error {
	return e.engine.Close()
}

func shape64(shape []int) []int64 {
	out := make([]int64, len(shape))
	for i, d := range shape {
		out[i] = int64(d)
	}
	return out
}

func toTensor(nt NamedTensor) (*tensor.Tensor, error) {
	data, ok := nt.Data.([]float32)
	if !ok {
		return nil, &EngineError{Err: fmt.Errorf("output %q is not float32", nt.Name)}
	}
	shape := make([]int, len(nt.Shape))
	size := 1
	for i, d := range nt.Shape {
		shape[i] = int(d)
		size *= int(d)
	}
	if size != len(data) {
		return nil, &EngineError{Err: fmt.Errorf("output %q: %d elements for shape %v", nt.Name, len(data), nt.Shape)}
	}
	return tensor.FromData(data, shape...), nil
}
