package audio

import (
	"math"

	fft "github.com/mjibson/go-dsp/fft"
)

const (
	minDecibels = -100.0
	maxDecibels = -30.0
)

// blackmanWindow computes a Blackman window of the given size.
func blackmanWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(size-1)
		w[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	}
	return w
}

// Spectrum computes a normalized magnitude spectrum of the samples over
// the given number of frequency bins: windowed FFT, magnitudes in
// decibels scaled to [0, 1]. The sample count should be at least twice
// the bin count; shorter input is zero padded.
func Spectrum(samples []float32, bins int) []float32 {
	if bins <= 0 {
		return nil
	}
	size := bins * 2
	window := blackmanWindow(size)
	input := make([]float64, size)
	for i := 0; i < size && i < len(samples); i++ {
		input[i] = float64(samples[i]) * window[i]
	}

	result := fft.FFTReal(input)

	out := make([]float32, bins)
	for i := 0; i < bins; i++ {
		re := real(result[i])
		im := imag(result[i])
		magnitude := math.Sqrt(re*re+im*im) * (2.0 / float64(size))
		db := 20 * math.Log10(magnitude+1e-9)
		switch {
		case db < minDecibels:
			out[i] = 0
		case db > maxDecibels:
			out[i] = 1
		default:
			out[i] = float32((db - minDecibels) / (maxDecibels - minDecibels))
		}
	}
	return out
}
