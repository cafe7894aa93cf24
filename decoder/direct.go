package decoder

import (
	"fmt"

	"whisper-subs-go/tensor"
)

// DirectStepper runs the layered decoder model in process, routing every
// attention sublayer's key/value computation through the cache.
type DirectStepper struct {
	model      *tensor.DecoderModel
	maxSelfLen int
}

// NewDirectStepper wraps a loaded decoder model. maxSelfLen is the
// self-attention context bound for the replace-instead-of-append policy.
func NewDirectStepper(model *tensor.DecoderModel, maxSelfLen int) *DirectStepper {
	return &DirectStepper{model: model, maxSelfLen: maxSelfLen}
}

// Step implements Stepper
func (d *DirectStepper) Step(tokens [][]int, features *tensor.Tensor, cache *Cache) (*StepResult, error) {
	if err := validateStep(tokens, features, cache); err != nil {
		return nil, err
	}

	numLayers := len(d.model.Blocks)
	pastLen := cache.SelfLen()

	pastSelfK := make([]*tensor.Tensor, numLayers)
	pastSelfV := make([]*tensor.Tensor, numLayers)
	crossK := make([]*tensor.Tensor, numLayers)
	crossV := make([]*tensor.Tensor, numLayers)
	for i := 0; i < numLayers; i++ {
		pastSelfK[i], _ = cache.Get(Slot{Layer: i, Kind: SelfKey})
		pastSelfV[i], _ = cache.Get(Slot{Layer: i, Kind: SelfValue})
		crossK[i], _ = cache.Get(Slot{Layer: i, Kind: CrossKey})
		crossV[i], _ = cache.Get(Slot{Layer: i, Kind: CrossValue})
	}

	res, err := d.model.Forward(tokens, pastLen, features, pastSelfK, pastSelfV, crossK, crossV)
	if err != nil {
		return nil, fmt.Errorf("decoder forward: %w", err)
	}

	for i, layer := range res.Layers {
		cache.Put(Slot{Layer: i, Kind: SelfKey}, layer.SelfK)
		cache.Put(Slot{Layer: i, Kind: SelfValue}, layer.SelfV)
		if crossK[i] == nil {
			cache.Put(Slot{Layer: i, Kind: CrossKey}, layer.CrossK)
			cache.Put(Slot{Layer: i, Kind: CrossValue}, layer.CrossV)
		}
	}

	return &StepResult{Logits: res.Logits, Cache: cache}, nil
}

// Reindex implements Stepper
func (d *DirectStepper) Reindex(cache *Cache, indices []int) (*Cache, error) {
	return cache.Reindex(indices)
}

// Reset implements Stepper
func (d *DirectStepper) Reset() *Cache {
	return NewCache(d.maxSelfLen)
}

// Close implements Stepper; the in-process model holds no external resources
func (d *DirectStepper) Close() error {
	return nil
}
