package tensor

import (
	"fmt"
	"math"
)

// Tensor represents a multi-dimensional float32 array
type Tensor struct {
	Data  []float32
	Shape []int
}

// NewTensor creates a new zero-filled tensor with the given shape
func NewTensor(shape ...int) *Tensor {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	return &Tensor{
		Data:  make([]float32, size),
		Shape: shape,
	}
}

// FromData creates a tensor that takes ownership of data
func FromData(data []float32, shape ...int) *Tensor {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	if size != len(data) {
		panic(fmt.Sprintf("data length %d does not match shape %v", len(data), shape))
	}
	return &Tensor{Data: data, Shape: shape}
}

// Size returns total number of elements
func (t *Tensor) Size() int {
	size := 1
	for _, dim := range t.Shape {
		size *= dim
	}
	return size
}

// At returns element at given indices
func (t *Tensor) At(indices ...int) float32 {
	return t.Data[t.flatIndex(indices)]
}

// Set sets element at given indices
func (t *Tensor) Set(val float32, indices ...int) {
	t.Data[t.flatIndex(indices)] = val
}

func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != len(t.Shape) {
		panic(fmt.Sprintf("wrong number of indices: got %d, want %d", len(indices), len(t.Shape)))
	}
	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		idx += indices[i] * stride
		stride *= t.Shape[i]
	}
	return idx
}

// Clone returns a deep copy of the tensor
func (t *Tensor) Clone() *Tensor {
	data := make([]float32, len(t.Data))
	copy(data, t.Data)
	shape := make([]int, len(t.Shape))
	copy(shape, t.Shape)
	return &Tensor{Data: data, Shape: shape}
}

// Reshape returns a new tensor with different shape (same data)
func (t *Tensor) Reshape(shape ...int) *Tensor {
	newSize := 1
	for _, dim := range shape {
		newSize *= dim
	}
	if newSize != t.Size() {
		panic(fmt.Sprintf("cannot reshape: size mismatch %d vs %d", newSize, t.Size()))
	}
	return &Tensor{Data: t.Data, Shape: shape}
}

// MatMul performs matrix multiplication: [m,k] x [k,n] -> [m,n]
func MatMul(a, b *Tensor) *Tensor {
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		panic("MatMul requires 2D tensors")
	}
	if a.Shape[1] != b.Shape[0] {
		panic(fmt.Sprintf("incompatible shapes: [%d,%d] x [%d,%d]", a.Shape[0], a.Shape[1], b.Shape[0], b.Shape[1]))
	}

	m, k, n := a.Shape[0], a.Shape[1], b.Shape[1]
	result := NewTensor(m, n)

	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			sum := float32(0)
			for p := 0; p < k; p++ {
				sum += a.Data[i*k+p] * b.Data[p*n+j]
			}
			result.Data[i*n+j] = sum
		}
	}

	return result
}

// Add performs element-wise addition
func Add(a, b *Tensor) *Tensor {
	if len(a.Data) != len(b.Data) {
		panic("tensors must have same size")
	}
	result := NewTensor(a.Shape...)
	for i := range a.Data {
		result.Data[i] = a.Data[i] + b.Data[i]
	}
	return result
}

// Transpose swaps dimensions of a 2D tensor
func Transpose(t *Tensor) *Tensor {
	if len(t.Shape) != 2 {
		panic("Transpose requires 2D tensor")
	}
	m, n := t.Shape[0], t.Shape[1]
	result := NewTensor(n, m)

	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			result.Data[j*m+i] = t.Data[i*n+j]
		}
	}
	return result
}

// GELU activation function
func GELU(t *Tensor) *Tensor {
	result := NewTensor(t.Shape...)
	for i, x := range t.Data {
		x3 := x * x * x
		inner := math.Sqrt(2.0/math.Pi) * float64(x+0.044715*x3)
		result.Data[i] = 0.5 * x * (1.0 + float32(math.Tanh(inner)))
	}
	return result
}

// LayerNorm applies layer normalization over the last dimension
func LayerNorm(t *Tensor, weight, bias *Tensor, eps float32) *Tensor {
	result := NewTensor(t.Shape...)

	hiddenSize := t.Shape[len(t.Shape)-1]
	totalRows := 1
	for i := 0; i < len(t.Shape)-1; i++ {
		totalRows *= t.Shape[i]
	}

	for i := 0; i < totalRows; i++ {
		offset := i * hiddenSize

		mean := float32(0)
		for j := 0; j < hiddenSize; j++ {
			mean += t.Data[offset+j]
		}
		mean /= float32(hiddenSize)

		variance := float32(0)
		for j := 0; j < hiddenSize; j++ {
			diff := t.Data[offset+j] - mean
			variance += diff * diff
		}
		variance /= float32(hiddenSize)

		std := float32(math.Sqrt(float64(variance + eps)))
		for j := 0; j < hiddenSize; j++ {
			normalized := (t.Data[offset+j] - mean) / std
			result.Data[offset+j] = normalized*weight.Data[j] + bias.Data[j]
		}
	}

	return result
}

// ConcatSeq concatenates two rank-3 tensors [batch, seq, feat] along the
// sequence axis. Batch and feature dimensions must agree.
func ConcatSeq(a, b *Tensor) *Tensor {
	if len(a.Shape) != 3 || len(b.Shape) != 3 {
		panic("ConcatSeq requires rank-3 tensors")
	}
	if a.Shape[0] != b.Shape[0] || a.Shape[2] != b.Shape[2] {
		panic(fmt.Sprintf("incompatible shapes for ConcatSeq: %v and %v", a.Shape, b.Shape))
	}

	batch := a.Shape[0]
	seqA, seqB := a.Shape[1], b.Shape[1]
	feat := a.Shape[2]

	result := NewTensor(batch, seqA+seqB, feat)
	for n := 0; n < batch; n++ {
		dst := result.Data[n*(seqA+seqB)*feat:]
		copy(dst[:seqA*feat], a.Data[n*seqA*feat:(n+1)*seqA*feat])
		copy(dst[seqA*feat:(seqA+seqB)*feat], b.Data[n*seqB*feat:(n+1)*seqB*feat])
	}
	return result
}

// Gather selects rows along the batch (first) axis in the given order.
// Indices may repeat or omit rows, so the result's batch size is len(indices).
// Indices must be in range; callers validate before gathering.
func Gather(t *Tensor, indices []int) *Tensor {
	if len(t.Shape) < 1 {
		panic("cannot gather scalar")
	}

	stride := 1
	for i := 1; i < len(t.Shape); i++ {
		stride *= t.Shape[i]
	}

	newShape := make([]int, len(t.Shape))
	newShape[0] = len(indices)
	copy(newShape[1:], t.Shape[1:])

	result := NewTensor(newShape...)
	for row, src := range indices {
		if src < 0 || src >= t.Shape[0] {
			panic(fmt.Sprintf("gather index %d out of range for batch %d", src, t.Shape[0]))
		}
		copy(result.Data[row*stride:(row+1)*stride], t.Data[src*stride:(src+1)*stride])
	}
	return result
}

// TailSeq copies the last n positions of a rank-3 tensor [batch, seq, feat]
// along the sequence axis.
func TailSeq(t *Tensor, n int) *Tensor {
	if len(t.Shape) != 3 {
		panic("TailSeq requires a rank-3 tensor")
	}
	batch, seq, feat := t.Shape[0], t.Shape[1], t.Shape[2]
	if n < 0 || n > seq {
		panic(fmt.Sprintf("cannot take last %d of %d positions", n, seq))
	}

	result := NewTensor(batch, n, feat)
	for b := 0; b < batch; b++ {
		src := t.Data[(b*seq+seq-n)*feat : (b+1)*seq*feat]
		copy(result.Data[b*n*feat:(b+1)*n*feat], src)
	}
	return result
}

// Slice extracts a slice along the first dimension, sharing data
func (t *Tensor) Slice(start, end int) *Tensor {
	if len(t.Shape) < 1 {
		panic("cannot slice scalar")
	}

	stride := 1
	for i := 1; i < len(t.Shape); i++ {
		stride *= t.Shape[i]
	}

	newShape := make([]int, len(t.Shape))
	newShape[0] = end - start
	copy(newShape[1:], t.Shape[1:])

	return &Tensor{
		Data:  t.Data[start*stride : end*stride],
		Shape: newShape,
	}
}
