package tensor

import (
	"math"
	"math/rand"
	"sort"
)

// Argmax returns the index of the largest logit
func Argmax(logits []float32) int {
	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}
	return best
}

// LogSoftmax returns log-probabilities for one logits row
func LogSoftmax(logits []float32) []float64 {
	maxLogit := logits[0]
	for _, v := range logits {
		if v > maxLogit {
			maxLogit = v
		}
	}

	var sumExp float64
	for _, v := range logits {
		sumExp += math.Exp(float64(v - maxLogit))
	}
	logSum := math.Log(sumExp)

	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = float64(v-maxLogit) - logSum
	}
	return out
}

// Suppress sets the given token ids to -inf so they can never be selected
func Suppress(logits []float32, tokenIDs []int) {
	for _, id := range tokenIDs {
		if id >= 0 && id < len(logits) {
			logits[id] = float32(math.Inf(-1))
		}
	}
}

// SampleToken samples a token id from logits using temperature sampling.
// A temperature of zero (or below) degenerates to argmax.
func SampleToken(logits []float32, temperature float64, rng *rand.Rand) int {
	if temperature <= 0 {
		return Argmax(logits)
	}

	scaled := make([]float32, len(logits))
	for i, v := range logits {
		scaled[i] = v / float32(temperature)
	}

	maxLogit := scaled[0]
	for _, v := range scaled {
		if v > maxLogit {
			maxLogit = v
		}
	}

	probs := make([]float32, len(scaled))
	var sumExp float32
	for i, v := range scaled {
		probs[i] = float32(math.Exp(float64(v - maxLogit)))
		sumExp += probs[i]
	}

	r := rng.Float32() * sumExp
	var cum float32
	for i, p := range probs {
		cum += p
		if r <= cum {
			return i
		}
	}
	return len(probs) - 1
}

// TopK returns the indices of the k largest values, best first
func TopK(values []float64, k int) []int {
	if k > len(values) {
		k = len(values)
	}
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return values[idx[a]] > values[idx[b]]
	})
	return idx[:k]
}
