package asr

import "time"

// Segment is one fixed-length audio window queued for transcription
type Segment struct {
	Index   int
	Offset  time.Duration
	Length  time.Duration
	Samples []float32
}

// SplitSamples cuts mono PCM into fixed windows of windowSeconds, padding
// the final window with silence so every window has the model's expected
// length. The reported Length of the last segment is the real audio length.
func SplitSamples(samples []float32, sampleRate, windowSeconds int) []Segment {
	window := sampleRate * windowSeconds
	if len(samples) == 0 || window <= 0 {
		return nil
	}

	var segments []Segment
	for start := 0; start < len(samples); start += window {
		end := start + window
		real := end
		if real > len(samples) {
			real = len(samples)
		}

		chunk := make([]float32, window)
		copy(chunk, samples[start:real])

		segments = append(segments, Segment{
			Index:   len(segments),
			Offset:  time.Duration(start) * time.Second / time.Duration(sampleRate),
			Length:  time.Duration(real-start) * time.Second / time.Duration(sampleRate),
			Samples: chunk,
		})
	}
	return segments
}

// Transcript is the result for one segment
type Transcript struct {
	Segment Segment
	Text    string
	Tokens  []int

	// AvgLogProb is the mean token log-probability of the winning
	// hypothesis; low values flag unreliable windows.
	AvgLogProb float64

	// FromCache marks transcripts served from the transcript store rather
	// than decoded.
	FromCache bool
}
