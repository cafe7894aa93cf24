package tensor

import (
	"fmt"
	"math/rand"
)

// DecoderConfig describes the text-decoder half of an encoder-decoder speech
// model: a stack of identical blocks, each with causal self-attention over
// generated tokens and cross-attention over the encoder features.
type DecoderConfig struct {
	VocabSize    int
	MaxPositions int // learned positional embedding table size
	Hidden       int
	NumHeads     int
	NumLayers    int
}

// Validate checks the configuration for internal consistency
func (c *DecoderConfig) Validate() error {
	if c.VocabSize <= 0 || c.Hidden <= 0 || c.NumHeads <= 0 || c.NumLayers <= 0 {
		return fmt.Errorf("decoder config dimensions must be positive: %+v", *c)
	}
	if c.Hidden%c.NumHeads != 0 {
		return fmt.Errorf("hidden size %d not divisible by %d heads", c.Hidden, c.NumHeads)
	}
	if c.MaxPositions <= 0 {
		return fmt.Errorf("max positions must be positive")
	}
	return nil
}

// MLPLayer is the feed-forward sublayer of a decoder block
type MLPLayer struct {
	W1 *Tensor // [hidden, ffn]
	B1 *Tensor
	W2 *Tensor // [ffn, hidden]
	B2 *Tensor
}

// Forward applies the two-layer GELU MLP to a rank-3 input
func (m *MLPLayer) Forward(x *Tensor) *Tensor {
	batch := x.Shape[0]
	seq := x.Shape[1]
	hidden := x.Shape[2]
	ffn := m.W1.Shape[1]

	h := MatMul(x.Reshape(batch*seq, hidden), m.W1)
	for i := 0; i < batch*seq; i++ {
		for j := 0; j < ffn; j++ {
			h.Data[i*ffn+j] += m.B1.Data[j]
		}
	}
	h = GELU(h)

	out := MatMul(h, m.W2)
	for i := 0; i < batch*seq; i++ {
		for j := 0; j < hidden; j++ {
			out.Data[i*hidden+j] += m.B2.Data[j]
		}
	}
	return out.Reshape(batch, seq, hidden)
}

// LayerNormParams holds layer-norm weights
type LayerNormParams struct {
	Weight *Tensor
	Bias   *Tensor
	Eps    float32
}

// Apply normalizes x with the stored parameters
func (ln *LayerNormParams) Apply(x *Tensor) *Tensor {
	return LayerNorm(x, ln.Weight, ln.Bias, ln.Eps)
}

// BlockResult carries the key/value projections a single block produced for
// this forward pass: self projections cover the new positions only, cross
// projections cover the full encoder sequence.
type BlockResult struct {
	SelfK  *Tensor
	SelfV  *Tensor
	CrossK *Tensor
	CrossV *Tensor
}

// DecoderBlock is one pre-norm decoder layer: self-attention, cross-attention
// and MLP, each with a residual connection.
type DecoderBlock struct {
	SelfAttn  *SelfAttention
	CrossAttn *CrossAttention
	MLP       *MLPLayer
	LNSelf    *LayerNormParams
	LNCross   *LayerNormParams
	LNMLP     *LayerNormParams
}

// Forward runs the block over the new decoder states
func (b *DecoderBlock) Forward(x, features, pastSelfK, pastSelfV, crossK, crossV *Tensor) (*Tensor, BlockResult) {
	var res BlockResult

	attnOut, newK, newV := b.SelfAttn.Forward(b.LNSelf.Apply(x), pastSelfK, pastSelfV)
	x = Add(x, attnOut)
	res.SelfK, res.SelfV = newK, newV

	crossOut, ck, cv := b.CrossAttn.Forward(b.LNCross.Apply(x), features, crossK, crossV)
	x = Add(x, crossOut)
	res.CrossK, res.CrossV = ck, cv

	x = Add(x, b.MLP.Forward(b.LNMLP.Apply(x)))
	return x, res
}

// DecoderModel is the layered text decoder used by the direct-execution
// backend. Token and position embeddings feed a stack of DecoderBlocks; the
// LM head is tied to the token embedding.
type DecoderModel struct {
	Config *DecoderConfig

	TokenEmbedding *Tensor // [vocab, hidden]
	PosEmbedding   *Tensor // [max_positions, hidden]
	Blocks         []*DecoderBlock
	LNFinal        *LayerNormParams
	lmHead         *Tensor // [hidden, vocab], transpose of TokenEmbedding
}

// NewDecoderModel creates a model with zero weights
func NewDecoderModel(config *DecoderConfig) (*DecoderModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	headDim := config.Hidden / config.NumHeads
	blocks := make([]*DecoderBlock, config.NumLayers)
	for i := range blocks {
		blocks[i] = &DecoderBlock{
			SelfAttn: &SelfAttention{
				NumHeads: config.NumHeads, HeadDim: headDim, Hidden: config.Hidden,
				QWeight: NewTensor(config.Hidden, config.Hidden),
				KWeight: NewTensor(config.Hidden, config.Hidden),
				VWeight: NewTensor(config.Hidden, config.Hidden),
				OutWeight: NewTensor(config.Hidden, config.Hidden),
				QBias: NewTensor(config.Hidden), VBias: NewTensor(config.Hidden), OutBias: NewTensor(config.Hidden),
			},
			CrossAttn: &CrossAttention{
				NumHeads: config.NumHeads, HeadDim: headDim, Hidden: config.Hidden,
				QWeight: NewTensor(config.Hidden, config.Hidden),
				KWeight: NewTensor(config.Hidden, config.Hidden),
				VWeight: NewTensor(config.Hidden, config.Hidden),
				OutWeight: NewTensor(config.Hidden, config.Hidden),
				QBias: NewTensor(config.Hidden), VBias: NewTensor(config.Hidden), OutBias: NewTensor(config.Hidden),
			},
			MLP: &MLPLayer{
				W1: NewTensor(config.Hidden, 4*config.Hidden),
				B1: NewTensor(4 * config.Hidden),
				W2: NewTensor(4*config.Hidden, config.Hidden),
				B2: NewTensor(config.Hidden),
			},
			LNSelf:  newUnitNorm(config.Hidden),
			LNCross: newUnitNorm(config.Hidden),
			LNMLP:   newUnitNorm(config.Hidden),
		}
	}

	m := &DecoderModel{
		Config:         config,
		TokenEmbedding: NewTensor(config.VocabSize, config.Hidden),
		PosEmbedding:   NewTensor(config.MaxPositions, config.Hidden),
		Blocks:         blocks,
		LNFinal:        newUnitNorm(config.Hidden),
	}
	return m, nil
}

func newUnitNorm(hidden int) *LayerNormParams {
	ln := &LayerNormParams{
		Weight: NewTensor(hidden),
		Bias:   NewTensor(hidden),
		Eps:    1e-5,
	}
	for i := range ln.Weight.Data {
		ln.Weight.Data[i] = 1
	}
	return ln
}

// Randomize fills all weights with small random values. Used by tests that
// need a nontrivial model without loading real weights.
func (m *DecoderModel) Randomize(seed int64) {
	rng := rand.New(rand.NewSource(seed))
	fill := func(t *Tensor) {
		for i := range t.Data {
			t.Data[i] = (rng.Float32() - 0.5) * 0.2
		}
	}
	fill(m.TokenEmbedding)
	fill(m.PosEmbedding)
	for _, b := range m.Blocks {
		for _, t := range []*Tensor{
			b.SelfAttn.QWeight, b.SelfAttn.KWeight, b.SelfAttn.VWeight, b.SelfAttn.OutWeight,
			b.SelfAttn.QBias, b.SelfAttn.VBias, b.SelfAttn.OutBias,
			b.CrossAttn.QWeight, b.CrossAttn.KWeight, b.CrossAttn.VWeight, b.CrossAttn.OutWeight,
			b.CrossAttn.QBias, b.CrossAttn.VBias, b.CrossAttn.OutBias,
			b.MLP.W1, b.MLP.B1, b.MLP.W2, b.MLP.B2,
		} {
			fill(t)
		}
	}
	m.lmHead = nil
}

// LMHead returns the vocabulary projection, tied to the token embedding
func (m *DecoderModel) LMHead() *Tensor {
	if m.lmHead == nil {
		m.lmHead = Transpose(m.TokenEmbedding)
	}
	return m.lmHead
}

// ForwardResult is the output of one decoder forward pass
type ForwardResult struct {
	Logits *Tensor // [batch, new_seq, vocab]
	Layers []BlockResult
}

// Forward decodes the newly supplied token positions. tokens is a batch of
// equal-length token slices; pastLen is the number of positions already held
// in the caller's self-attention cache. Per-layer past/cross tensors may be
// nil on a cold start, in which case features must be supplied so the cross
// projections can be computed.
func (m *DecoderModel) Forward(tokens [][]int, pastLen int, features *Tensor,
	pastSelfK, pastSelfV, crossK, crossV []*Tensor) (*ForwardResult, error) {

	batch := len(tokens)
	if batch == 0 {
		return nil, fmt.Errorf("no tokens supplied")
	}
	newSeq := len(tokens[0])
	for _, row := range tokens {
		if len(row) != newSeq {
			return nil, fmt.Errorf("ragged token batch: %d vs %d", len(row), newSeq)
		}
	}
	if pastLen+newSeq > m.Config.MaxPositions {
		return nil, fmt.Errorf("position %d exceeds table size %d", pastLen+newSeq, m.Config.MaxPositions)
	}

	// Token + position embeddings for the new positions.
	hidden := m.Config.Hidden
	x := NewTensor(batch, newSeq, hidden)
	for b := 0; b < batch; b++ {
		for s := 0; s < newSeq; s++ {
			tok := tokens[b][s]
			if tok < 0 || tok >= m.Config.VocabSize {
				return nil, fmt.Errorf("token %d out of vocabulary range %d", tok, m.Config.VocabSize)
			}
			dst := x.Data[(b*newSeq+s)*hidden : (b*newSeq+s+1)*hidden]
			copy(dst, m.TokenEmbedding.Data[tok*hidden:(tok+1)*hidden])
			pos := pastLen + s
			for d := 0; d < hidden; d++ {
				dst[d] += m.PosEmbedding.Data[pos*hidden+d]
			}
		}
	}

	layers := make([]BlockResult, len(m.Blocks))
	for i, block := range m.Blocks {
		var psK, psV, cK, cV *Tensor
		if pastSelfK != nil {
			psK = pastSelfK[i]
		}
		if pastSelfV != nil {
			psV = pastSelfV[i]
		}
		if crossK != nil {
			cK = crossK[i]
		}
		if crossV != nil {
			cV = crossV[i]
		}
		x, layers[i] = block.Forward(x, features, psK, psV, cK, cV)
	}

	x = m.LNFinal.Apply(x)
	logits := MatMul(x.Reshape(batch*newSeq, hidden), m.LMHead()).
		Reshape(batch, newSeq, m.Config.VocabSize)

	return &ForwardResult{Logits: logits, Layers: layers}, nil
}
