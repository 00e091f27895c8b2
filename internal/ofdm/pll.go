package ofdm

import "math"

// Oscillator is a numerically controlled oscillator used to correct a
// residual carrier frequency offset before each FFT. The cyclic-prefix
// self-correlation that drives its frequency estimate is measured by the
// Demodulator (demapSymbol), not here.
// Grounded on ofdm_demodulator.cpp's ApplyPLL/QuantizedOscillator, using a
// plain running phase accumulator (the reference's alternative to its
// quantised lookup table, which it documents as an equivalent,
// lower-memory implementation for platforms that can afford the
// trigonometric call per sample).
type Oscillator struct {
	phase     float64 // radians
	freqHz    float64 // current frequency offset estimate
	sampleHz  float64
}

// NewOscillator creates an Oscillator for the given sample rate, initially
// with zero frequency offset.
func NewOscillator(sampleRateHz float64) *Oscillator {
	return &Oscillator{sampleHz: sampleRateHz}
}

// SetFrequency sets the oscillator's correction frequency in Hz. Positive
// values correct for a transmitter carrier that appears high relative to
// the receiver's tuned frequency.
func (o *Oscillator) SetFrequency(hz float64) { o.freqHz = hz }

// Frequency returns the oscillator's current correction frequency in Hz.
func (o *Oscillator) Frequency() float64 { return o.freqHz }

// AdjustFrequency nudges the oscillator's frequency by deltaHz, used by
// the fine-frequency tracking loop.
func (o *Oscillator) AdjustFrequency(deltaHz float64) { o.freqHz += deltaHz }

// Mix multiplies each sample in place by exp(-j*phase), advancing the
// phase accumulator by 2*pi*freqHz/sampleHz per sample, and wraps the
// accumulator to avoid unbounded growth.
func (o *Oscillator) Mix(samples []complex128) {
	step := 2 * math.Pi * o.freqHz / o.sampleHz
	for i, s := range samples {
		c := complex(math.Cos(-o.phase), math.Sin(-o.phase))
		samples[i] = s * c
		o.phase += step
		if o.phase > math.Pi {
			o.phase -= 2 * math.Pi
		} else if o.phase < -math.Pi {
			o.phase += 2 * math.Pi
		}
	}
}

// ResetPhase zeroes the phase accumulator, used when restarting
// synchronisation at a null symbol boundary so phase does not drift
// across an unlocked period.
func (o *Oscillator) ResetPhase() { o.phase = 0 }
