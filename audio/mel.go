// Package audio handles PCM extraction from media files, log-mel
// spectrograms and model/media fetching.
package audio

import (
	"math"

	"whisper-subs-go/tensor"
)

// Spectrogram geometry expected by the speech encoder.
const (
	MelBins    = 80
	FFTSize    = 400
	HopLength  = 160
	SampleRate = 16000
)

var (
	hannWindow []float32
	melBank    [][]float32
	dftCos     [][]float32
	dftSin     [][]float32
)

func init() {
	hannWindow = make([]float32, FFTSize)
	for i := range hannWindow {
		hannWindow[i] = float32(0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(FFTSize))))
	}

	melBank = melFilterBank(MelBins, FFTSize, SampleRate)

	bins := FFTSize/2 + 1
	dftCos = make([][]float32, bins)
	dftSin = make([][]float32, bins)
	for k := 0; k < bins; k++ {
		dftCos[k] = make([]float32, FFTSize)
		dftSin[k] = make([]float32, FFTSize)
		for n := 0; n < FFTSize; n++ {
			angle := 2 * math.Pi * float64(k) * float64(n) / float64(FFTSize)
			dftCos[k][n] = float32(math.Cos(angle))
			dftSin[k][n] = float32(math.Sin(angle))
		}
	}
}

// LogMel computes the normalized log-mel spectrogram of 16 kHz mono PCM,
// shaped (1, mels, frames) for the encoder.
func LogMel(samples []float32) *tensor.Tensor {
	padded := reflectPad(samples, FFTSize/2)

	frames := len(samples) / HopLength
	if frames < 1 {
		frames = 1
	}

	bins := FFTSize/2 + 1
	out := tensor.NewTensor(1, MelBins, frames)

	power := make([]float32, bins)
	frame := make([]float32, FFTSize)

	maxLog := float32(math.Inf(-1))
	for t := 0; t < frames; t++ {
		start := t * HopLength
		for i := 0; i < FFTSize; i++ {
			if start+i < len(padded) {
				frame[i] = padded[start+i] * hannWindow[i]
			} else {
				frame[i] = 0
			}
		}

		for k := 0; k < bins; k++ {
			var re, im float32
			cos, sin := dftCos[k], dftSin[k]
			for n := 0; n < FFTSize; n++ {
				re += frame[n] * cos[n]
				im -= frame[n] * sin[n]
			}
			power[k] = re*re + im*im
		}

		for m := 0; m < MelBins; m++ {
			var energy float32
			for k, w := range melBank[m] {
				if w != 0 {
					energy += w * power[k]
				}
			}
			if energy < 1e-10 {
				energy = 1e-10
			}
			logged := float32(math.Log10(float64(energy)))
			out.Data[m*frames+t] = logged
			if logged > maxLog {
				maxLog = logged
			}
		}
	}

	// Clamp the dynamic range to 8 decades below the peak, then rescale to
	// roughly [-1, 1].
	floor := maxLog - 8
	for i, v := range out.Data {
		if v < floor {
			v = floor
		}
		out.Data[i] = (v + 4) / 4
	}

	return out
}

// reflectPad mirrors the signal at both edges; short signals are zero padded
func reflectPad(samples []float32, pad int) []float32 {
	out := make([]float32, len(samples)+2*pad)
	if len(samples) <= pad {
		copy(out[pad:], samples)
		return out
	}
	for i := 0; i < pad; i++ {
		out[i] = samples[pad-i]
	}
	copy(out[pad:], samples)
	for i := 0; i < pad; i++ {
		out[pad+len(samples)+i] = samples[len(samples)-2-i]
	}
	return out
}

// melFilterBank builds triangular filters on the HTK mel scale
func melFilterBank(mels, fftSize, sampleRate int) [][]float32 {
	bins := fftSize/2 + 1

	hzToMel := func(hz float64) float64 { return 2595 * math.Log10(1+hz/700) }
	melToHz := func(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

	low := hzToMel(0)
	high := hzToMel(float64(sampleRate) / 2)

	centers := make([]float64, mels+2)
	for i := range centers {
		mel := low + (high-low)*float64(i)/float64(mels+1)
		centers[i] = melToHz(mel) * float64(fftSize) / float64(sampleRate)
	}

	bank := make([][]float32, mels)
	for m := 0; m < mels; m++ {
		bank[m] = make([]float32, bins)
		left, center, right := centers[m], centers[m+1], centers[m+2]
		for k := 0; k < bins; k++ {
			f := float64(k)
			switch {
			case f <= left || f >= right:
			case f <= center:
				if center > left {
					bank[m][k] = float32((f - left) / (center - left))
				}
			default:
				if right > center {
					bank[m][k] = float32((right - f) / (right - center))
				}
			}
		}
	}
	return bank
}
