package asr

import (
	"strings"
	"unicode"
)

// WER computes the word error rate of a hypothesis against a reference,
// after lowercasing and stripping punctuation. Returns 0 for two empty
// texts and 1 when only the reference is empty.
func WER(reference, hypothesis string) float64 {
	ref := normalizeWords(reference)
	hyp := normalizeWords(hypothesis)
	return errorRate(ref, hyp)
}

// CER computes the character error rate over the normalized texts,
// with spaces collapsed.
func CER(reference, hypothesis string) float64 {
	ref := strings.Split(strings.Join(normalizeWords(reference), ""), "")
	hyp := strings.Split(strings.Join(normalizeWords(hypothesis), ""), "")
	return errorRate(ref, hyp)
}

// normalizeWords lowercases, strips punctuation and splits on whitespace
func normalizeWords(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Fields(b.String())
}

// errorRate is the edit distance between the sequences over the reference
// length
func errorRate(ref, hyp []string) float64 {
	if len(ref) == 0 {
		if len(hyp) == 0 {
			return 0
		}
		return 1
	}
	return float64(editDistance(ref, hyp)) / float64(len(ref))
}

// editDistance is the Levenshtein distance with unit costs
func editDistance(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
