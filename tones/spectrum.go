package tones

import (
	"github.com/racerxdl/segdsp/tools"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Peak is the strongest positive-frequency bin of a buffer's spectrum.
type Peak struct {
	Frequency  float64
	Resolution float64
	Power      float32
}

// PeakFrequency runs an FFT over at most size samples of buf (the whole buffer when
// size is zero) and returns the strongest bin between DC and Nyquist.
func PeakFrequency(buf []int8, sampleRate float64, size int) Peak {
	if size <= 0 || size > len(buf) {
		size = len(buf)
	}
	if size < 2 {
		return Peak{}
	}

	input := make([]complex128, size)
	for i := range input {
		input[i] = complex(float64(buf[i])/MaxAmplitude, 0)
	}

	fft := fourier.NewCmplxFFT(size)
	coeff := fft.Coefficients(nil, input)

	// Skip DC, the tone banks carry no offset worth reporting.
	best, bestPower := 0, float32(-1)
	for i := 1; i <= size/2; i++ {
		p := tools.ComplexAbsSquared(complex64(coeff[i]))
		if p > bestPower {
			best, bestPower = i, p
		}
	}

	resolution := sampleRate / float64(size)
	return Peak{
		Frequency:  fft.Freq(best) * sampleRate,
		Resolution: resolution,
		Power:      bestPower,
	}
}
