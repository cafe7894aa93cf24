package tensor

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/x448/float16"
)

// TensorInfo describes a tensor entry in a safetensors header
type TensorInfo struct {
	Dtype  string   `json:"dtype"`
	Shape  []int    `json:"shape"`
	Offset [2]int64 `json:"data_offsets"`
}

type safetensorsFile struct {
	tensors map[string]TensorInfo
	data    []byte
}

func openSafetensors(path string) (*safetensorsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("file too small for safetensors header")
	}

	headerSize := binary.LittleEndian.Uint64(data[:8])
	if uint64(len(data)) < 8+headerSize {
		return nil, fmt.Errorf("truncated safetensors header")
	}

	var metadata map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerSize], &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	tensors := make(map[string]TensorInfo, len(metadata))
	for name, raw := range metadata {
		if name == "__metadata__" {
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(raw, &info); err != nil {
			return nil, fmt.Errorf("bad entry %q: %w", name, err)
		}
		tensors[name] = info
	}

	return &safetensorsFile{tensors: tensors, data: data[8+headerSize:]}, nil
}

// tensor decodes one named tensor, converting F16 to float32
func (f *safetensorsFile) tensor(name string) (*Tensor, error) {
	info, ok := f.tensors[name]
	if !ok {
		return nil, fmt.Errorf("tensor %q not found", name)
	}

	raw := f.data[info.Offset[0]:info.Offset[1]]
	size := 1
	for _, d := range info.Shape {
		size *= d
	}

	out := make([]float32, size)
	switch info.Dtype {
	case "F32":
		if len(raw) != size*4 {
			return nil, fmt.Errorf("tensor %q: %d bytes for %d float32", name, len(raw), size)
		}
		for i := 0; i < size; i++ {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	case "F16":
		if len(raw) != size*2 {
			return nil, fmt.Errorf("tensor %q: %d bytes for %d float16", name, len(raw), size)
		}
		for i := 0; i < size; i++ {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(raw[i*2:])).Float32()
		}
	default:
		return nil, fmt.Errorf("tensor %q: unsupported dtype %s", name, info.Dtype)
	}

	shape := make([]int, len(info.Shape))
	copy(shape, info.Shape)
	return &Tensor{Data: out, Shape: shape}, nil
}

// linear loads a [out, in] projection weight and transposes it to the
// [in, out] layout the matmuls here expect
func (f *safetensorsFile) linear(name string) (*Tensor, error) {
	w, err := f.tensor(name)
	if err != nil {
		return nil, err
	}
	if len(w.Shape) != 2 {
		return nil, fmt.Errorf("tensor %q is not a matrix", name)
	}
	return Transpose(w), nil
}

// LoadDecoderModel loads the text-decoder weights of a Whisper-style model
// from a safetensors file using the HuggingFace parameter layout
// (model.decoder.*). Key projections carry no bias in that layout.
func LoadDecoderModel(path string, config *DecoderConfig) (*DecoderModel, error) {
	f, err := openSafetensors(path)
	if err != nil {
		return nil, err
	}

	model, err := NewDecoderModel(config)
	if err != nil {
		return nil, err
	}

	if model.TokenEmbedding, err = f.tensor("model.decoder.embed_tokens.weight"); err != nil {
		return nil, fmt.Errorf("failed to load token embedding: %w", err)
	}
	if model.PosEmbedding, err = f.tensor("model.decoder.embed_positions.weight"); err != nil {
		return nil, fmt.Errorf("failed to load position embedding: %w", err)
	}

	for i, block := range model.Blocks {
		prefix := fmt.Sprintf("model.decoder.layers.%d", i)

		if err := loadSelf(f, prefix+".self_attn", block.SelfAttn); err != nil {
			return nil, fmt.Errorf("layer %d self-attention: %w", i, err)
		}
		if err := loadCross(f, prefix+".encoder_attn", block.CrossAttn); err != nil {
			return nil, fmt.Errorf("layer %d cross-attention: %w", i, err)
		}

		if block.MLP.W1, err = f.linear(prefix + ".fc1.weight"); err != nil {
			return nil, err
		}
		if block.MLP.B1, err = f.tensor(prefix + ".fc1.bias"); err != nil {
			return nil, err
		}
		if block.MLP.W2, err = f.linear(prefix + ".fc2.weight"); err != nil {
			return nil, err
		}
		if block.MLP.B2, err = f.tensor(prefix + ".fc2.bias"); err != nil {
			return nil, err
		}

		if err := loadNorm(f, prefix+".self_attn_layer_norm", block.LNSelf); err != nil {
			return nil, err
		}
		if err := loadNorm(f, prefix+".encoder_attn_layer_norm", block.LNCross); err != nil {
			return nil, err
		}
		if err := loadNorm(f, prefix+".final_layer_norm", block.LNMLP); err != nil {
			return nil, err
		}
	}

	if err := loadNorm(f, "model.decoder.layer_norm", model.LNFinal); err != nil {
		return nil, err
	}
	model.lmHead = nil

	return model, nil
}

func loadSelf(f *safetensorsFile, prefix string, attn *SelfAttention) error {
	var err error
	if attn.QWeight, err = f.linear(prefix + ".q_proj.weight"); err != nil {
		return err
	}
	if attn.KWeight, err = f.linear(prefix + ".k_proj.weight"); err != nil {
		return err
	}
	if attn.VWeight, err = f.linear(prefix + ".v_proj.weight"); err != nil {
		return err
	}
	if attn.OutWeight, err = f.linear(prefix + ".out_proj.weight"); err != nil {
		return err
	}
	if attn.QBias, err = f.tensor(prefix + ".q_proj.bias"); err != nil {
		return err
	}
	if attn.VBias, err = f.tensor(prefix + ".v_proj.bias"); err != nil {
		return err
	}
	if attn.OutBias, err = f.tensor(prefix + ".out_proj.bias"); err != nil {
		return err
	}
	return nil
}

func loadCross(f *safetensorsFile, prefix string, attn *CrossAttention) error {
	var err error
	if attn.QWeight, err = f.linear(prefix + ".q_proj.weight"); err != nil {
		return err
	}
	if attn.KWeight, err = f.linear(prefix + ".k_proj.weight"); err != nil {
		return err
	}
	if attn.VWeight, err = f.linear(prefix + ".v_proj.weight"); err != nil {
		return err
	}
	if attn.OutWeight, err = f.linear(prefix + ".out_proj.weight"); err != nil {
		return err
	}
	if attn.QBias, err = f.tensor(prefix + ".q_proj.bias"); err != nil {
		return err
	}
	if attn.VBias, err = f.tensor(prefix + ".v_proj.bias"); err != nil {
		return err
	}
	if attn.OutBias, err = f.tensor(prefix + ".out_proj.bias"); err != nil {
		return err
	}
	return nil
}

func loadNorm(f *safetensorsFile, prefix string, ln *LayerNormParams) error {
	var err error
	if ln.Weight, err = f.tensor(prefix + ".weight"); err != nil {
		return err
	}
	if ln.Bias, err = f.tensor(prefix + ".bias"); err != nil {
		return err
	}
	ln.Eps = 1e-5
	return nil
}
