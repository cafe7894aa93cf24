// Package decoder implements the incremental attention-cache decoder
// adapter: a step function over an autoregressive speech decoder that
// recomputes only the projections for newly supplied tokens, persisting
// key/value tensors in an explicit cache between steps. Two interchangeable
// backends exist, one running the layered model directly and one driving a
// precompiled inference engine through a flat named-tensor contract.
package decoder

import "whisper-subs-go/tensor"

// StepResult is the outcome of one decoding step
type StepResult struct {
	// Logits has shape (batch, tokens supplied this step, vocab).
	Logits *tensor.Tensor

	// Cache is the updated cache; the same object that was passed in,
	// mutated in place.
	Cache *Cache
}

// Stepper presents the decoder as a step function to the decoding loop,
// hiding whether execution happens in-process or on a precompiled engine.
//
// Call discipline for one run: Reset, then Step with the full token prefix
// and encoder features, then Step once per decoding iteration with the new
// tokens only (features may be nil: the cross-attention slots are already
// cached). Reindex may be interleaved between steps when a beam search
// reorders or prunes candidates. Steps are strictly sequential; the cache is
// owned by the single active run.
type Stepper interface {
	// Step decodes the supplied tokens against the cache and extends it.
	// tokens is a batch of equal-length token id rows; its batch dimension
	// must match a non-empty cache's. features is required when the cache
	// is empty and ignored afterwards.
	Step(tokens [][]int, features *tensor.Tensor, cache *Cache) (*StepResult, error)

	// Reindex gathers every slot's batch axis by the selection, returning
	// a new cache. Supports beam pruning and duplication.
	Reindex(cache *Cache, indices []int) (*Cache, error)

	// Reset returns a fresh empty cache for a new segment.
	Reset() *Cache

	// Close releases backend resources.
	Close() error
}

// validateStep enforces the shared input constraints of both backends
func validateStep(tokens [][]int, features *tensor.Tensor, cache *Cache) error {
	if len(tokens) == 0 {
		return ErrShapeMismatch
	}
	width := len(tokens[0])
	for _, row := range tokens {
		if len(row) != width || width == 0 {
			return ErrShapeMismatch
		}
	}
	if cache.Empty() {
		if features == nil {
			return ErrMissingFeatures
		}
		if len(features.Shape) != 3 || features.Shape[0] != len(tokens) {
			return ErrShapeMismatch
		}
		return nil
	}
	if cache.Batch() != len(tokens) {
		return ErrShapeMismatch
	}
	return nil
}
