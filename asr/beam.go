package asr

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"whisper-subs-go/decoder"
	"whisper-subs-go/tensor"
)

// hypothesis is one candidate transcription during search
type hypothesis struct {
	tokens []int
	score  float64
}

func (h hypothesis) normalized(penalty float64) float64 {
	if len(h.tokens) == 0 {
		return math.Inf(-1)
	}
	return h.score / math.Pow(float64(len(h.tokens)), penalty)
}

// lastLogits returns the logits row of the final position for batch row b
func lastLogits(logits *tensor.Tensor, b int) []float32 {
	width := logits.Shape[1]
	vocab := logits.Shape[2]
	off := (b*width + width - 1) * vocab
	return logits.Data[off : off+vocab]
}

// decodeGreedy decodes one window with argmax or temperature sampling.
// Returns the generated text tokens (end token stripped) and the mean token
// log-probability.
func decodeGreedy(stepper decoder.Stepper, features *tensor.Tensor, prefix []int,
	special SpecialTokens, opts *DecodeOptions) ([]int, float64, error) {

	cache := stepper.Reset()
	res, err := stepper.Step([][]int{prefix}, features, cache)
	if err != nil {
		return nil, 0, fmt.Errorf("priming step: %w", err)
	}

	var rng *rand.Rand
	if opts.Temperature > 0 {
		rng = rand.New(rand.NewSource(0))
	}

	var tokens []int
	var scoreSum float64

	for len(tokens) < opts.MaxTokens {
		row := lastLogits(res.Logits, 0)
		tensor.Suppress(row, special.Suppress)

		var tok int
		if rng != nil {
			tok = tensor.SampleToken(row, opts.Temperature, rng)
		} else {
			tok = tensor.Argmax(row)
		}
		scoreSum += tensor.LogSoftmax(row)[tok]

		if tok == special.EndOfText {
			break
		}
		tokens = append(tokens, tok)

		res, err = stepper.Step([][]int{{tok}}, nil, cache)
		if err != nil {
			return nil, 0, fmt.Errorf("decode step %d: %w", len(tokens), err)
		}
	}

	if len(tokens) == 0 {
		return nil, math.Inf(-1), nil
	}
	return tokens, scoreSum / float64(len(tokens)), nil
}

// decodeBeam decodes one window with beam search. The cache is primed with a
// single row and then duplicated across the beam via Reindex; each pruning
// round gathers the cache rows of the surviving candidates.
func decodeBeam(stepper decoder.Stepper, features *tensor.Tensor, prefix []int,
	special SpecialTokens, opts *DecodeOptions) ([]int, float64, error) {

	cache := stepper.Reset()
	res, err := stepper.Step([][]int{prefix}, features, cache)
	if err != nil {
		return nil, 0, fmt.Errorf("priming step: %w", err)
	}

	width := opts.BeamSize

	// Seed the beam from the single primed row.
	row := lastLogits(res.Logits, 0)
	tensor.Suppress(row, special.Suppress)
	logp := tensor.LogSoftmax(row)

	var active []hypothesis
	var finished []hypothesis
	for _, tok := range tensor.TopK(logp, width) {
		if tok == special.EndOfText {
			finished = append(finished, hypothesis{score: logp[tok]})
			continue
		}
		active = append(active, hypothesis{tokens: []int{tok}, score: logp[tok]})
	}

	dup := make([]int, len(active))
	cache, err = stepper.Reindex(cache, dup)
	if err != nil {
		return nil, 0, fmt.Errorf("beam duplication: %w", err)
	}

	for steps := 1; steps < opts.MaxTokens && len(active) > 0 && len(finished) < width; steps++ {
		tokens := make([][]int, len(active))
		for i, h := range active {
			tokens[i] = []int{h.tokens[len(h.tokens)-1]}
		}

		res, err = stepper.Step(tokens, nil, cache)
		if err != nil {
			return nil, 0, fmt.Errorf("beam step %d: %w", steps, err)
		}

		// Expand every active hypothesis and keep the best width overall.
		type candidate struct {
			source int
			token  int
			score  float64
		}
		var pool []candidate
		for i := range active {
			row := lastLogits(res.Logits, i)
			tensor.Suppress(row, special.Suppress)
			logp := tensor.LogSoftmax(row)
			for _, tok := range tensor.TopK(logp, width+1) {
				pool = append(pool, candidate{source: i, token: tok, score: active[i].score + logp[tok]})
			}
		}
		sort.Slice(pool, func(a, b int) bool { return pool[a].score > pool[b].score })

		var nextActive []hypothesis
		var sources []int
		for _, c := range pool {
			if len(nextActive) == width {
				break
			}
			if c.token == special.EndOfText {
				if len(finished) < width {
					finished = append(finished, hypothesis{
						tokens: append([]int(nil), active[c.source].tokens...),
						score:  c.score,
					})
				}
				continue
			}
			grown := append(append([]int(nil), active[c.source].tokens...), c.token)
			nextActive = append(nextActive, hypothesis{tokens: grown, score: c.score})
			sources = append(sources, c.source)
		}

		if len(nextActive) == 0 {
			break
		}

		cache, err = stepper.Reindex(cache, sources)
		if err != nil {
			return nil, 0, fmt.Errorf("beam pruning: %w", err)
		}
		active = nextActive
	}

	best, ok := pickBest(finished, active, opts.LengthPenalty)
	if !ok || len(best.tokens) == 0 {
		return nil, math.Inf(-1), nil
	}
	return best.tokens, best.score / float64(len(best.tokens)), nil
}

// pickBest prefers finished hypotheses, falling back to the best active one
func pickBest(finished, active []hypothesis, penalty float64) (hypothesis, bool) {
	pool := finished
	if len(pool) == 0 {
		pool = active
	}
	if len(pool) == 0 {
		return hypothesis{}, false
	}

	best := pool[0]
	for _, h := range pool[1:] {
		if h.normalized(penalty) > best.normalized(penalty) {
			best = h
		}
	}
	return best, true
}
