package tensor

import (
	"math"
)

// SelfAttention implements multi-head causal self-attention over generated
// tokens. Key/value projections for previously seen tokens are supplied by the
// caller as rank-3 [batch, past_seq, hidden] tensors; the layer projects only
// the newly supplied positions and attends over the concatenation.
type SelfAttention struct {
	NumHeads int
	HeadDim  int
	Hidden   int

	QWeight   *Tensor // [hidden, hidden]
	KWeight   *Tensor
	VWeight   *Tensor
	OutWeight *Tensor

	QBias   *Tensor // [hidden]
	VBias   *Tensor
	OutBias *Tensor
}

// Forward attends x over pastK/pastV plus the projections of x itself.
// pastK and pastV may both be nil on a cold start. Returns the attention
// output along with the key/value projections of the new positions only, so
// the caller can extend its cache.
func (a *SelfAttention) Forward(x, pastK, pastV *Tensor) (out, newK, newV *Tensor) {
	batch := x.Shape[0]

	q := project(x, a.QWeight, a.QBias, a.Hidden)
	newK = project(x, a.KWeight, nil, a.Hidden)
	newV = project(x, a.VWeight, a.VBias, a.Hidden)

	k, v := newK, newV
	pastLen := 0
	if pastK != nil && pastV != nil {
		pastLen = pastK.Shape[1]
		k = ConcatSeq(pastK, newK)
		v = ConcatSeq(pastV, newV)
	}

	// Queries at new position i may attend to keys 0..pastLen+i.
	ctx := attend(q, k, v, batch, a.NumHeads, a.HeadDim, func(i, j int) bool {
		return j <= pastLen+i
	})

	out = project(ctx, a.OutWeight, a.OutBias, a.Hidden)
	return out, newK, newV
}

// CrossAttention implements multi-head attention from decoder states onto the
// fixed encoder features. Its key/value projections depend only on the
// encoder output, so they are computed once per segment and then reused.
type CrossAttention struct {
	NumHeads int
	HeadDim  int
	Hidden   int

	QWeight   *Tensor
	KWeight   *Tensor
	VWeight   *Tensor
	OutWeight *Tensor

	QBias   *Tensor
	VBias   *Tensor
	OutBias *Tensor
}

// Forward attends x over the encoder features. When cachedK/cachedV are
// non-nil they are used verbatim and features is ignored; otherwise the
// projections are computed from features and returned for caching.
func (a *CrossAttention) Forward(x, features, cachedK, cachedV *Tensor) (out, k, v *Tensor) {
	batch := x.Shape[0]

	q := project(x, a.QWeight, a.QBias, a.Hidden)

	if cachedK != nil && cachedV != nil {
		k, v = cachedK, cachedV
	} else {
		k = project(features, a.KWeight, nil, a.Hidden)
		v = project(features, a.VWeight, a.VBias, a.Hidden)
	}

	// Every decoder position sees the full encoder sequence.
	ctx := attend(q, k, v, batch, a.NumHeads, a.HeadDim, func(i, j int) bool {
		return true
	})

	out = project(ctx, a.OutWeight, a.OutBias, a.Hidden)
	return out, k, v
}

// project applies a linear layer to a rank-3 input [batch, seq, in].
func project(x, weight, bias *Tensor, hidden int) *Tensor {
	batch := x.Shape[0]
	seq := x.Shape[1]
	in := x.Shape[2]

	xFlat := x.Reshape(batch*seq, in)
	result := MatMul(xFlat, weight)

	if bias != nil {
		for i := 0; i < batch*seq; i++ {
			for j := 0; j < hidden; j++ {
				result.Data[i*hidden+j] += bias.Data[j]
			}
		}
	}

	return result.Reshape(batch, seq, hidden)
}

// attend runs scaled dot-product attention per head over rank-3 hidden-dim
// projections, with an arbitrary visibility predicate on (query, key)
// positions. q is [batch, qSeq, hidden]; k and v are [batch, kSeq, hidden].
func attend(q, k, v *Tensor, batch, numHeads, headDim int, visible func(i, j int) bool) *Tensor {
	qSeq := q.Shape[1]
	kSeq := k.Shape[1]
	hidden := numHeads * headDim

	scale := float32(1.0 / math.Sqrt(float64(headDim)))
	result := NewTensor(batch, qSeq, hidden)

	scores := make([]float32, kSeq)
	for b := 0; b < batch; b++ {
		for h := 0; h < numHeads; h++ {
			for i := 0; i < qSeq; i++ {
				qOff := (b*qSeq+i)*hidden + h*headDim

				// Scores over all visible key positions.
				maxScore := float32(math.Inf(-1))
				for j := 0; j < kSeq; j++ {
					if !visible(i, j) {
						scores[j] = float32(math.Inf(-1))
						continue
					}
					kOff := (b*kSeq+j)*hidden + h*headDim
					sum := float32(0)
					for d := 0; d < headDim; d++ {
						sum += q.Data[qOff+d] * k.Data[kOff+d]
					}
					scores[j] = sum * scale
					if scores[j] > maxScore {
						maxScore = scores[j]
					}
				}

				// Softmax in place.
				var denom float32
				for j := 0; j < kSeq; j++ {
					if math.IsInf(float64(scores[j]), -1) {
						scores[j] = 0
						continue
					}
					scores[j] = float32(math.Exp(float64(scores[j] - maxScore)))
					denom += scores[j]
				}

				// Weighted sum of values.
				outOff := (b*qSeq+i)*hidden + h*headDim
				for d := 0; d < headDim; d++ {
					sum := float32(0)
					for j := 0; j < kSeq; j++ {
						vOff := (b*kSeq+j)*hidden + h*headDim
						sum += scores[j] * v.Data[vOff+d]
					}
					result.Data[outOff+d] = sum / denom
				}
			}
		}
	}

	return result
}
