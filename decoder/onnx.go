package decoder

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEngine executes a precompiled ONNX graph with onnxruntime. The graph
// must have been exported with dynamic batch and self-attention sequence
// axes; the feature dimension and cross-attention length are static.
type ONNXEngine struct {
	session     *ort.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
}

// InitRuntime points the ONNX runtime at its shared library and initializes
// the environment. Safe to call more than once.
func InitRuntime(libraryPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}
	return nil
}

// NewONNXEngine opens a session over the compiled graph at modelPath with
// the given declared input and output names.
func NewONNXEngine(modelPath string, inputNames, outputNames []string) (*ONNXEngine, error) {
	if !ort.IsInitialized() {
		if err := InitRuntime(""); err != nil {
			return nil, err
		}
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	if err := options.SetIntraOpNumThreads(4); err != nil {
		return nil, fmt.Errorf("failed to set threads: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", modelPath, err)
	}

	return &ONNXEngine{
		session:     session,
		inputNames:  inputNames,
		outputNames: outputNames,
	}, nil
}

// Run implements Engine. Inputs are matched to the session's declared input
// order by name; every declared input must be present.
func (e *ONNXEngine) Run(inputs []NamedTensor) ([]NamedTensor, error) {
	byName := make(map[string]NamedTensor, len(inputs))
	for _, in := range inputs {
		byName[in.Name] = in
	}

	values := make([]ort.Value, len(e.inputNames))
	defer func() {
		for _, v := range values {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	for i, name := range e.inputNames {
		in, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("missing engine input %q", name)
		}
		shape := ort.NewShape(in.Shape...)

		var value ort.Value
		var err error
		switch data := in.Data.(type) {
		case []float32:
			value, err = ort.NewTensor(shape, data)
		case []int64:
			value, err = ort.NewTensor(shape, data)
		default:
			return nil, fmt.Errorf("input %q has unsupported data type %T", name, in.Data)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create tensor for %q: %w", name, err)
		}
		values[i] = value
	}

	outputs := make([]ort.Value, len(e.outputNames))
	if err := e.session.Run(values, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, v := range outputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	results := make([]NamedTensor, 0, len(outputs))
	for i, out := range outputs {
		t, ok := out.(*ort.Tensor[float32])
		if !ok {
			return nil, fmt.Errorf("output %q is not a float32 tensor", e.outputNames[i])
		}

		shape := t.GetShape()
		dims := make([]int64, len(shape))
		copy(dims, shape)

		src := t.GetData()
		data := make([]float32, len(src))
		copy(data, src)

		results = append(results, NamedTensor{
			Name:  e.outputNames[i],
			Shape: dims,
			Data:  data,
		})
	}
	return results, nil
}

// Close implements Engine
func (e *ONNXEngine) Close() error {
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	return nil
}
