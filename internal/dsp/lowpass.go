// internal/dsp/lowpass.go
package dsp

import (
	"errors"
	"math"
)

var (
	// ErrInvalidFilterOrder indicates the filter order is out of range
	ErrInvalidFilterOrder = errors.New("filter order must be between 1 and 16")
	// ErrInvalidCutoff indicates the cutoff must be positive and below Nyquist
	ErrInvalidCutoff = errors.New("cutoff frequency must be positive and less than Nyquist frequency")
)

// MaxFilterOrder is the highest supported low-pass order.
const MaxFilterOrder = 16

// biquad is one second-order IIR section in direct form II transposed.
// Coefficients are real so the section filters I and Q identically;
// the state is complex to carry both components.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     complex128
}

func (s *biquad) feed(x complex128) complex128 {
	y := complex(s.b0, 0)*x + s.z1
	s.z1 = complex(s.b1, 0)*x - complex(s.a1, 0)*y + s.z2
	s.z2 = complex(s.b2, 0)*x - complex(s.a2, 0)*y
	return y
}

// Lowpass is a Butterworth low-pass filter over complex samples,
// realized as a cascade of biquad sections (plus one first-order
// section for odd orders). It consumes one sample per Feed call and is
// not safe for concurrent use.
type Lowpass struct {
	order      int
	sampleRate float64
	cutoff     float64
	sections   []biquad
}

// NewLowpass designs a Butterworth low-pass of the given order and
// cutoff frequency in Hz via the bilinear transform.
func NewLowpass(order int, sampleRate, cutoff float64) (*Lowpass, error) {
	if order < 1 || order > MaxFilterOrder {
		return nil, ErrInvalidFilterOrder
	}
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if cutoff <= 0 || cutoff >= sampleRate/2 {
		return nil, ErrInvalidCutoff
	}

	// Pre-warped analog cutoff.
	wc := math.Tan(math.Pi * cutoff / sampleRate)
	wc2 := wc * wc

	sections := make([]biquad, 0, (order+1)/2)

	// One section per conjugate pole pair of the Butterworth prototype.
	for k := 1; k <= order/2; k++ {
		d := 2 * wc * math.Sin(float64(2*k-1)*math.Pi/float64(2*order))
		a0 := 1 + d + wc2
		sections = append(sections, biquad{
			b0: wc2 / a0,
			b1: 2 * wc2 / a0,
			b2: wc2 / a0,
			a1: 2 * (wc2 - 1) / a0,
			a2: (1 - d + wc2) / a0,
		})
	}

	// Odd orders leave a single real pole.
	if order%2 == 1 {
		a0 := 1 + wc
		sections = append(sections, biquad{
			b0: wc / a0,
			b1: wc / a0,
			a1: (wc - 1) / a0,
		})
	}

	return &Lowpass{
		order:      order,
		sampleRate: sampleRate,
		cutoff:     cutoff,
		sections:   sections,
	}, nil
}

// Feed filters one sample and returns the filter output.
func (f *Lowpass) Feed(x complex128) complex128 {
	for i := range f.sections {
		x = f.sections[i].feed(x)
	}
	return x
}

// Reset clears the filter state without changing the design.
func (f *Lowpass) Reset() {
	for i := range f.sections {
		f.sections[i].z1 = 0
		f.sections[i].z2 = 0
	}
}

// Order returns the configured filter order.
func (f *Lowpass) Order() int {
	return f.order
}

// Cutoff returns the configured cutoff frequency in Hz.
func (f *Lowpass) Cutoff() float64 {
	return f.cutoff
}
