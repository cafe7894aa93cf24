package tensor

import (
	"math"
	"testing"
)

func TestMatMul(t *testing.T) {
	a := FromData([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := FromData([]float32{7, 8, 9, 10, 11, 12}, 3, 2)

	c := MatMul(a, b)

	if c.Shape[0] != 2 || c.Shape[1] != 2 {
		t.Fatalf("Expected shape [2 2], got %v", c.Shape)
	}

	expected := []float32{58, 64, 139, 154}
	for i, want := range expected {
		if c.Data[i] != want {
			t.Errorf("Expected %.0f at %d, got %.0f", want, i, c.Data[i])
		}
	}
}

func TestConcatSeq(t *testing.T) {
	// Two batches, features of width 2.
	a := FromData([]float32{1, 2, 3, 4, 5, 6, 7, 8}, 2, 2, 2)
	b := FromData([]float32{9, 10, 11, 12}, 2, 1, 2)

	c := ConcatSeq(a, b)

	if c.Shape[0] != 2 || c.Shape[1] != 3 || c.Shape[2] != 2 {
		t.Fatalf("Expected shape [2 3 2], got %v", c.Shape)
	}

	// Batch 0: rows of a then row of b.
	expected := []float32{1, 2, 3, 4, 9, 10, 5, 6, 7, 8, 11, 12}
	for i, want := range expected {
		if c.Data[i] != want {
			t.Errorf("Expected %.0f at %d, got %.0f", want, i, c.Data[i])
		}
	}
}

func TestGather(t *testing.T) {
	src := FromData([]float32{0, 0, 1, 1, 2, 2, 3, 3, 4, 4}, 5, 2)

	g := Gather(src, []int{2, 2, 0})

	if g.Shape[0] != 3 || g.Shape[1] != 2 {
		t.Fatalf("Expected shape [3 2], got %v", g.Shape)
	}

	expected := []float32{2, 2, 2, 2, 0, 0}
	for i, want := range expected {
		if g.Data[i] != want {
			t.Errorf("Expected %.0f at %d, got %.0f", want, i, g.Data[i])
		}
	}
}

func TestGatherOutOfRangePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for out-of-range gather index")
		}
	}()
	Gather(NewTensor(2, 3), []int{0, 5})
}

func TestCloneIsIndependent(t *testing.T) {
	a := FromData([]float32{1, 2, 3, 4}, 2, 2)
	b := a.Clone()

	b.Data[0] = 99

	if a.Data[0] != 1 {
		t.Errorf("Clone mutation leaked into original: got %.0f", a.Data[0])
	}
}

func TestLogSoftmaxSumsToOne(t *testing.T) {
	logp := LogSoftmax([]float32{1, 2, 3, 4})

	var sum float64
	for _, lp := range logp {
		sum += math.Exp(lp)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("Expected probabilities to sum to 1, got %f", sum)
	}
	if TopK(logp, 1)[0] != 3 {
		t.Errorf("Expected index 3 to have the highest log-probability")
	}
}

func TestSuppress(t *testing.T) {
	logits := []float32{5, 1, 9, 2}
	Suppress(logits, []int{2})

	if Argmax(logits) != 0 {
		t.Errorf("Expected argmax 0 after suppressing token 2, got %d", Argmax(logits))
	}
}
