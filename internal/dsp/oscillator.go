// internal/dsp/oscillator.go
package dsp

import (
	"errors"
	"math"
)

var (
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidOscFrequency indicates the oscillator frequency must lie below Nyquist
	ErrInvalidOscFrequency = errors.New("oscillator frequency magnitude must be less than Nyquist frequency")
)

// Oscillator is a numerically-controlled oscillator. Each call to Next
// produces one unit-magnitude complex sample at a fixed frequency, so a
// stream of outputs traces the complex exponential exp(j*2*pi*f*n/fs).
// Multiplying an input stream by the conjugate of this output shifts the
// signal at the oscillator frequency down to DC.
type Oscillator struct {
	phase float64 // current phase in radians, kept in [0, 2*pi)
	step  float64 // per-sample phase increment
}

// NewOscillator creates an oscillator at the given frequency in Hz.
// The frequency may be negative; its magnitude must be below Nyquist.
func NewOscillator(sampleRate, frequency float64) (*Oscillator, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if math.Abs(frequency) >= sampleRate/2 {
		return nil, ErrInvalidOscFrequency
	}

	return &Oscillator{
		step: 2 * math.Pi * frequency / sampleRate,
	}, nil
}

// Next returns the current oscillator output and advances it one sample.
func (o *Oscillator) Next() complex128 {
	out := complex(math.Cos(o.phase), math.Sin(o.phase))

	// Wrap instead of accumulating so precision does not degrade over
	// long streams. The step magnitude is below pi, one adjustment is
	// always enough.
	o.phase += o.step
	if o.phase >= 2*math.Pi {
		o.phase -= 2 * math.Pi
	} else if o.phase < 0 {
		o.phase += 2 * math.Pi
	}

	return out
}

// Step returns the per-sample phase increment in radians.
func (o *Oscillator) Step() float64 {
	return o.step
}
