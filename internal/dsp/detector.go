// internal/dsp/detector.go
package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrInvalidChirpDuration indicates the minimum chirp duration must be positive
	ErrInvalidChirpDuration = errors.New("minimum chirp duration must be positive")
	// ErrInvalidThresholdRatio indicates the threshold ratio must not be negative
	ErrInvalidThresholdRatio = errors.New("threshold ratio must not be negative")
	// ErrCutoffOrder indicates the signal cutoff must be narrower than the noise cutoff
	ErrCutoffOrder = errors.New("signal cutoff must be below noise cutoff")
	// ErrSinkRequired indicates an output sink is required
	ErrSinkRequired = errors.New("output sink is required")
)

// Filter orders of the two low-pass stages. The wider stage bounds the
// noise estimate, the narrower stage isolates the chirp tone.
const (
	noiseFilterOrder  = 5
	signalFilterOrder = 4
)

// SampleSink receives one encoded output sample per input sample fed to
// the detector. The detector owns its sink exclusively and closes it on
// Close.
type SampleSink interface {
	WriteSample(s complex64) error
	Close() error
}

// ChirpEvent reports one completed chirp.
type ChirpEvent struct {
	// Length is the number of samples attributed to the chirp,
	// including the detection window that triggered it.
	Length int
	// Offset is the chirp start relative to the stream start,
	// truncated to whole seconds.
	Offset time.Duration
}

// ChirpCallback is called once per detected chirp, on the end
// transition. It runs on the feeding goroutine and must be fast.
type ChirpCallback func(event ChirpEvent)

// Config holds construction parameters for the detector.
// All values should come from the application config file.
type Config struct {
	// SampleRate of the input stream in Hz (from config: sample_rate)
	SampleRate float64
	// CarrierOffset is the expected chirp carrier in Hz (from config: carrier_offset)
	CarrierOffset float64
	// NoiseCutoff is the wide low-pass cutoff in Hz used for the noise
	// power estimate (from config: noise_cutoff)
	NoiseCutoff float64
	// SignalCutoff is the narrow low-pass cutoff in Hz used for the
	// signal power estimate (from config: signal_cutoff)
	SignalCutoff float64
	// MinChirpDuration is the shortest chirp of interest in seconds;
	// it sets both the EMA time constant and the integration window
	// (from config: min_chirp_duration)
	MinChirpDuration float64
	// ThresholdRatio is the per-sample power ratio that counts as chirp
	// energy. Zero selects twice the bandwidth quotient
	// SignalCutoff/NoiseCutoff, the expected gain difference between
	// the two stages (from config: threshold_ratio)
	ThresholdRatio float64
}

// DefaultConfig returns the parameters of a 8 kHz meteor-scatter setup.
func DefaultConfig() Config {
	return Config{
		SampleRate:       8000,
		CarrierOffset:    1000,
		NoiseCutoff:      300,
		SignalCutoff:     50,
		MinChirpDuration: 0.07,
	}
}

// Detector finds short narrowband chirps in a complex baseband stream.
//
// Each sample is down-converted by the carrier offset, passed through
// the wide low-pass (noise power EMA) and then the narrow low-pass
// (signal power EMA). The per-sample power ratio is summed over a
// sliding window of one minimum chirp duration, and a two-state
// hysteresis machine turns that integral into chirp start/end events.
// For every input sample one output sample is written to the sink:
// real part 1 while output is valid (in chirp or draining the trailing
// window), imaginary part the instantaneous phase of the one-sample
// frequency discriminator.
//
// The detector owns its filters, buffers and sink exclusively; it is
// not safe for concurrent use.
type Detector struct {
	cfg Config

	osc          *Oscillator
	noiseFilter  *Lowpass
	signalFilter *Lowpass

	alpha       float64 // EMA smoothing factor for both power estimates
	noisePower  float64
	signalPower float64

	windowLen       int
	energyThreshold float64
	powerHistory    []float64    // last windowLen power ratios
	delayLine       []complex128 // discriminator products, in lock-step
	writeIndex      int

	inChirp       bool
	chirpLength   int
	tailRemaining int

	prev       complex128
	samplesFed uint64

	sink   SampleSink
	closed bool

	callbackPtr atomic.Pointer[ChirpCallback]
}

// New creates a detector writing encoded samples to sink.
// The sink is owned by the detector from this point on; it is not
// closed when construction fails.
func New(cfg Config, sink SampleSink) (*Detector, error) {
	if sink == nil {
		return nil, ErrSinkRequired
	}
	if cfg.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if cfg.MinChirpDuration <= 0 {
		return nil, ErrInvalidChirpDuration
	}
	if cfg.ThresholdRatio < 0 {
		return nil, ErrInvalidThresholdRatio
	}
	if cfg.SignalCutoff >= cfg.NoiseCutoff {
		return nil, ErrCutoffOrder
	}

	osc, err := NewOscillator(cfg.SampleRate, cfg.CarrierOffset)
	if err != nil {
		return nil, err
	}
	noiseFilter, err := NewLowpass(noiseFilterOrder, cfg.SampleRate, cfg.NoiseCutoff)
	if err != nil {
		return nil, err
	}
	signalFilter, err := NewLowpass(signalFilterOrder, cfg.SampleRate, cfg.SignalCutoff)
	if err != nil {
		return nil, err
	}

	threshold := cfg.ThresholdRatio
	if threshold == 0 {
		threshold = 2 * cfg.SignalCutoff / cfg.NoiseCutoff
	}

	windowLen := int(math.Ceil(cfg.SampleRate * cfg.MinChirpDuration))

	return &Detector{
		cfg:             cfg,
		osc:             osc,
		noiseFilter:     noiseFilter,
		signalFilter:    signalFilter,
		alpha:           1 - math.Exp(-1/(cfg.SampleRate*cfg.MinChirpDuration)),
		windowLen:       windowLen,
		energyThreshold: threshold * float64(windowLen),
		powerHistory:    make([]float64, windowLen),
		delayLine:       make([]complex128, windowLen),
		sink:            sink,
	}, nil
}

// SetCallback sets the callback for chirp events.
// The callback is invoked from the feeding goroutine.
func (d *Detector) SetCallback(cb ChirpCallback) {
	if cb == nil {
		d.callbackPtr.Store(nil)
	} else {
		d.callbackPtr.Store(&cb)
	}
}

// Feed consumes one baseband sample and writes one encoded sample to
// the sink. The returned error is a sink write failure; the detection
// pipeline itself has no failure modes.
//
// At stream start the ratio is degenerate until the wide filter passes
// any energy; while the noise power estimate is still exactly zero the
// ratio is taken as zero so an all-zero prefix can never trigger a
// chirp.
func (d *Detector) Feed(x complex64) error {
	// Down-convert by the carrier offset, then estimate broadband
	// noise power past the wide filter.
	y := d.noiseFilter.Feed(complex128(x) * cmplx.Conj(d.osc.Next()))
	d.noisePower += d.alpha * (real(y*cmplx.Conj(y)) - d.noisePower)

	// Isolate the tone with the narrow filter and estimate its power.
	y = d.signalFilter.Feed(y)
	d.signalPower += d.alpha * (real(y*cmplx.Conj(y)) - d.signalPower)

	ratio := 0.0
	if d.noisePower > 0 {
		ratio = d.signalPower / d.noisePower
	}

	d.powerHistory[d.writeIndex] = ratio
	d.delayLine[d.writeIndex] = y * cmplx.Conj(d.prev)

	d.writeIndex++
	if d.writeIndex == d.windowLen {
		d.writeIndex = 0
	}
	// writeIndex now points at the oldest remaining entry.

	// Full resummation every sample: rounding depends only on the
	// current buffer contents. A running sum would drift differently.
	integral := floats.Sum(d.powerHistory)

	d.advanceChirpState(integral)

	// Drain the trailing window once the chirp has ended; the windowed
	// integral lags the true boundary by up to windowLen samples.
	if !d.inChirp && d.tailRemaining > 0 {
		d.tailRemaining--
	}

	var out complex64
	if d.tailRemaining != 0 {
		out = complex(1, float32(cmplx.Phase(d.delayLine[d.writeIndex])))
	}
	if err := d.sink.WriteSample(out); err != nil {
		return fmt.Errorf("write output sample: %w", err)
	}

	d.prev = y
	d.samplesFed++
	return nil
}

// advanceChirpState runs one step of the hysteresis state machine.
// Equality with the threshold counts as chirp energy, so entry and
// continuation use >= and only a strictly smaller integral exits.
func (d *Detector) advanceChirpState(integral float64) {
	if d.inChirp {
		if integral < d.energyThreshold {
			d.inChirp = false
			d.emitEvent(ChirpEvent{
				Length: d.chirpLength,
				Offset: d.chirpOffset(),
			})
		} else {
			d.chirpLength++
		}
		return
	}

	if integral >= d.energyThreshold {
		// The integral already aggregated a full window of above
		// threshold samples, so the whole window belongs to the chirp.
		d.inChirp = true
		d.chirpLength = d.windowLen
		d.tailRemaining = d.windowLen
	}
}

// chirpOffset converts the retroactive chirp start into whole seconds
// since stream start.
func (d *Detector) chirpOffset() time.Duration {
	seconds := math.Floor((float64(d.samplesFed) - float64(d.chirpLength)) / d.cfg.SampleRate)
	return time.Duration(seconds) * time.Second
}

func (d *Detector) emitEvent(event ChirpEvent) {
	cbPtr := d.callbackPtr.Load()
	if cbPtr != nil {
		(*cbPtr)(event)
	}
}

// Close releases the output sink. It is safe to call more than once.
func (d *Detector) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.sink.Close()
}

// WindowLen returns the integration window length in samples.
func (d *Detector) WindowLen() int {
	return d.windowLen
}

// EnergyThreshold returns the windowed energy threshold.
func (d *Detector) EnergyThreshold() float64 {
	return d.energyThreshold
}

// InChirp returns true while the state machine is inside a chirp.
func (d *Detector) InChirp() bool {
	return d.inChirp
}

// TailRemaining returns the number of valid output samples left in the
// trailing drain window.
func (d *Detector) TailRemaining() int {
	return d.tailRemaining
}

// NoisePower returns the current noise power estimate (for monitoring).
func (d *Detector) NoisePower() float64 {
	return d.noisePower
}

// SignalPower returns the current signal power estimate (for monitoring).
func (d *Detector) SignalPower() float64 {
	return d.signalPower
}
