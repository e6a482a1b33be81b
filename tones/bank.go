package tones

import (
	"errors"
	"fmt"
	"math"
)

// MaxAmplitude is the largest peak a signed 8-bit sample can carry symmetrically.
const MaxAmplitude = 127

// Plan describes a tone bank: one buffer per entry in Frequencies, all rendered at
// SampleRate with Length samples and the given peak Amplitude. Phase offsets the
// first sample of every buffer, in radians.
type Plan struct {
	Frequencies []float64
	SampleRate  float64
	Length      int
	Amplitude   float64
	Phase       float64
}

// Bank holds the rendered tone buffers. It is never written after Build returns.
type Bank struct {
	plan  Plan
	tones [][]int8
}

var (
	ErrNoTones          = errors.New("tone plan has no tones")
	ErrSampleRate       = errors.New("sample rate must be positive")
	ErrBufferLength     = errors.New("buffer length must be positive")
	ErrAmplitude        = errors.New("amplitude must be within 1..127")
	ErrCarrierRatio     = errors.New("carrier ratio must be 2, 4 or 8")
	ErrToneAboveNyquist = errors.New("tone frequency above Nyquist")
)

// FSK builds the plan for a multi-tone FSK bank: tone k sits at base + k*spacing.
func FSK(base, spacing float64, count int, sampleRate float64, length int, amplitude float64) Plan {
	freqs := make([]float64, count)
	for k := range freqs {
		freqs[k] = base + float64(k)*spacing
	}
	return Plan{
		Frequencies: freqs,
		SampleRate:  sampleRate,
		Length:      length,
		Amplitude:   amplitude,
	}
}

// Carrier builds the plan for a single unmodulated tone with the sample rate tied to
// the tone by a fixed ratio, so every buffer holds a whole number of periods.
// The waveform starts on a falling zero crossing, or on the negative peak when the
// ratio is 2 and every zero crossing would land on a sample.
func Carrier(freq float64, ratio int, length int, amplitude float64) Plan {
	phase := math.Pi
	if ratio == 2 {
		phase = -math.Pi / 2
	}
	return Plan{
		Frequencies: []float64{freq},
		SampleRate:  freq * float64(ratio),
		Length:      length,
		Amplitude:   amplitude,
		Phase:       phase,
	}
}

func ValidCarrierRatio(ratio int) error {
	switch ratio {
	case 2, 4, 8:
		return nil
	}
	return fmt.Errorf("%w: got %d", ErrCarrierRatio, ratio)
}

func (p Plan) Validate() error {
	if len(p.Frequencies) == 0 {
		return ErrNoTones
	}
	if !(p.SampleRate > 0) {
		return fmt.Errorf("%w: got %v", ErrSampleRate, p.SampleRate)
	}
	if p.Length <= 0 {
		return fmt.Errorf("%w: got %d", ErrBufferLength, p.Length)
	}
	if p.Amplitude < 1 || p.Amplitude > MaxAmplitude {
		return fmt.Errorf("%w: got %v", ErrAmplitude, p.Amplitude)
	}
	for _, f := range p.Frequencies {
		if f > p.SampleRate/2 {
			return fmt.Errorf("%w: %v Hz at %v S/s", ErrToneAboveNyquist, f, p.SampleRate)
		}
	}
	return nil
}

// Build renders every tone of the plan. The buffer length has no relation to the tone
// period, so the waveform is generally not phase continuous when a buffer wraps.
func Build(p Plan) *Bank {
	b := &Bank{
		plan:  p,
		tones: make([][]int8, len(p.Frequencies)),
	}
	b.plan.Frequencies = append([]float64(nil), p.Frequencies...)
	for k, f := range p.Frequencies {
		b.tones[k] = render(f, p.SampleRate, p.Length, p.Amplitude, p.Phase)
	}
	return b
}

func render(freq, sampleRate float64, length int, amplitude, phase float64) []int8 {
	buf := make([]int8, length)
	for i := range buf {
		v := math.Round(math.Sin(2*math.Pi*freq*float64(i)/sampleRate+phase) * amplitude)
		if v > MaxAmplitude {
			v = MaxAmplitude
		} else if v < -MaxAmplitude {
			v = -MaxAmplitude
		}
		buf[i] = int8(v)
	}
	return buf
}

func (b *Bank) Len() int {
	return len(b.tones)
}

// Tone returns the buffer for tone k. Callers must not modify it.
func (b *Bank) Tone(k int) []int8 {
	return b.tones[k]
}

func (b *Bank) Frequency(k int) float64 {
	return b.plan.Frequencies[k]
}

func (b *Bank) SampleRate() float64 {
	return b.plan.SampleRate
}

func (b *Bank) BufferLength() int {
	return b.plan.Length
}

// Rescaled reports where tone k actually lands when the device runs at rate instead
// of the rate the bank was rendered for.
func (b *Bank) Rescaled(k int, rate float64) float64 {
	return b.plan.Frequencies[k] * rate / b.plan.SampleRate
}
