package asr

import (
	"math"
	"reflect"
	"testing"

	"whisper-subs-go/decoder"
	"whisper-subs-go/tensor"
)

const testVocab = 10

// scriptStepper plays back pre-arranged logits per decoding call so the
// search behavior can be tested without a model.
type scriptStepper struct {
	// rowLogits returns the logits row for batch row `row` on call `call`.
	rowLogits func(call, row int) []float32

	call      int
	steps     [][][]int
	reindexes [][]int
}

func (s *scriptStepper) Step(tokens [][]int, features *tensor.Tensor, cache *decoder.Cache) (*decoder.StepResult, error) {
	batch := len(tokens)
	width := len(tokens[0])
	s.steps = append(s.steps, tokens)

	logits := tensor.NewTensor(batch, width, testVocab)
	for b := 0; b < batch; b++ {
		row := s.rowLogits(s.call, b)
		copy(logits.Data[(b*width+width-1)*testVocab:], row)
	}
	s.call++

	cache.Put(decoder.Slot{Layer: 0, Kind: decoder.SelfKey}, tensor.NewTensor(batch, 1, 1))
	cache.Put(decoder.Slot{Layer: 0, Kind: decoder.SelfValue}, tensor.NewTensor(batch, 1, 1))
	return &decoder.StepResult{Logits: logits, Cache: cache}, nil
}

func (s *scriptStepper) Reindex(cache *decoder.Cache, indices []int) (*decoder.Cache, error) {
	s.reindexes = append(s.reindexes, append([]int(nil), indices...))
	return cache.Reindex(indices)
}

func (s *scriptStepper) Reset() *decoder.Cache {
	return decoder.NewCache(16)
}

func (s *scriptStepper) Close() error {
	return nil
}

// favoring builds a logits row with descending preference for the given ids
func favoring(ids ...int) []float32 {
	row := make([]float32, testVocab)
	for i := range row {
		row[i] = -10
	}
	for rank, id := range ids {
		row[id] = float32(10 - rank)
	}
	return row
}

// testSpecial mirrors the real layout: every control id sits at or above
// the end-of-text id.
func testSpecial() SpecialTokens {
	return SpecialTokens{EndOfText: 7, StartOfTranscript: 8}
}

func TestGreedyDecodeFollowsArgmax(t *testing.T) {
	script := map[int][]float32{
		0: favoring(3),
		1: favoring(5),
		2: favoring(7),
	}
	stepper := &scriptStepper{rowLogits: func(call, row int) []float32 {
		return script[call]
	}}

	opts := NewDecodeOptions()
	tokens, avg, err := decodeGreedy(stepper, tensor.NewTensor(1, 2, 4), []int{6}, testSpecial(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []int{3, 5}
	if !reflect.DeepEqual(tokens, expected) {
		t.Errorf("expected tokens %v, got %v", expected, tokens)
	}
	if avg >= 0 || math.IsInf(avg, -1) {
		t.Errorf("expected finite negative avg log-prob, got %v", avg)
	}
}

func TestGreedyDecodeHonorsSuppressList(t *testing.T) {
	script := map[int][]float32{
		0: favoring(3, 2),
		1: favoring(7),
	}
	stepper := &scriptStepper{rowLogits: func(call, row int) []float32 {
		return script[call]
	}}

	special := testSpecial()
	special.Suppress = []int{3}

	tokens, _, err := decodeGreedy(stepper, tensor.NewTensor(1, 2, 4), []int{6}, special, NewDecodeOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 1 || tokens[0] != 2 {
		t.Errorf("expected suppressed argmax to fall back to token 2, got %v", tokens)
	}
}

func TestGreedyDecodeStopsAtMaxTokens(t *testing.T) {
	stepper := &scriptStepper{rowLogits: func(call, row int) []float32 {
		return favoring(1)
	}}

	opts := NewDecodeOptions(WithMaxTokens(5))
	tokens, _, err := decodeGreedy(stepper, tensor.NewTensor(1, 2, 4), []int{6}, testSpecial(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 5 {
		t.Errorf("expected 5 tokens at the cap, got %d", len(tokens))
	}
}

func TestBeamDecodeDuplicatesCacheAcrossBeam(t *testing.T) {
	// First call seeds the beam with tokens 2 and 3; the next call ends
	// both hypotheses.
	stepper := &scriptStepper{rowLogits: func(call, row int) []float32 {
		if call == 0 {
			return favoring(2, 3)
		}
		return favoring(7)
	}}

	opts := NewDecodeOptions(WithBeamSize(2))
	tokens, _, err := decodeBeam(stepper, tensor.NewTensor(1, 2, 4), []int{6}, testSpecial(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(tokens, []int{2}) {
		t.Errorf("expected best hypothesis [2], got %v", tokens)
	}

	if len(stepper.reindexes) == 0 {
		t.Fatal("expected a cache duplication reindex")
	}
	if !reflect.DeepEqual(stepper.reindexes[0], []int{0, 0}) {
		t.Errorf("expected duplication selection [0 0], got %v", stepper.reindexes[0])
	}
}

func TestBeamDecodeStepsSurvivorsInScoreOrder(t *testing.T) {
	stepper := &scriptStepper{rowLogits: func(call, row int) []float32 {
		switch call {
		case 0:
			return favoring(2, 3)
		case 1:
			// Keep both beams alive one more step.
			if row == 0 {
				return favoring(4, 5)
			}
			return favoring(5, 4)
		default:
			return favoring(7)
		}
	}}

	opts := NewDecodeOptions(WithBeamSize(2))
	_, _, err := decodeBeam(stepper, tensor.NewTensor(1, 2, 4), []int{6}, testSpecial(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(stepper.steps) < 2 {
		t.Fatalf("expected at least 2 step calls, got %d", len(stepper.steps))
	}
	second := stepper.steps[1]
	if !reflect.DeepEqual(second, [][]int{{2}, {3}}) {
		t.Errorf("expected second step over last tokens [[2] [3]], got %v", second)
	}
}

func TestBeamDecodePrefersHigherScoringFinish(t *testing.T) {
	// Beam 0 (token 2) finishes immediately; beam 1 (token 3) extends with a
	// strong token first, accumulating more probability mass before ending.
	stepper := &scriptStepper{rowLogits: func(call, row int) []float32 {
		switch call {
		case 0:
			return favoring(2, 3)
		case 1:
			if row == 0 {
				return favoring(7)
			}
			return favoring(4)
		default:
			return favoring(7)
		}
	}}

	opts := NewDecodeOptions(WithBeamSize(2), WithLengthPenalty(0.5))
	tokens, _, err := decodeBeam(stepper, tensor.NewTensor(1, 2, 4), []int{6}, testSpecial(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) == 0 {
		t.Fatal("expected a non-empty winning hypothesis")
	}
}
