// internal/audio/capture.go

// Package audio captures mono float32 frames from a sound device and
// hands them to the detector as complex baseband chunks (the captured
// signal becomes the in-phase component, quadrature is zero).
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

var (
	ErrNotInitialized = errors.New("audio capture not initialized")
	ErrAlreadyRunning = errors.New("audio capture already running")
	ErrNotRunning     = errors.New("audio capture not running")
)

// Config holds audio capture configuration
type Config struct {
	DeviceIndex int    // -1 for default device
	SampleRate  uint32 // e.g. 8000
	BufferSize  uint32 // frames per callback
}

// DefaultConfig returns sensible defaults for chirp detection from a
// receiver's audio output.
func DefaultConfig() Config {
	return Config{
		DeviceIndex: -1,
		SampleRate:  8000,
		BufferSize:  1024,
	}
}

// Capture streams samples from a capture device. Chunks arrive on
// Samples; when the consumer lags, chunks are dropped rather than
// stalling the audio thread.
type Capture struct {
	config  Config
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	running bool
	closed  bool
	mu      sync.RWMutex

	// Samples receives complex baseband chunks, one per device callback.
	Samples chan []complex64
}

// New creates a new capture instance
func New(cfg Config) *Capture {
	return &Capture{
		config:  cfg,
		Samples: make(chan []complex64, 64),
	}
}

// Init initializes the audio backend
func (c *Capture) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	c.ctx = ctx

	return nil
}

// Devices returns the available capture devices
func (c *Capture) Devices() ([]malgo.DeviceInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ctx == nil {
		return nil, ErrNotInitialized
	}

	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	return infos, nil
}

// Start begins capturing. The device is stopped when ctx is canceled.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	if c.ctx == nil {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	c.mu.Unlock()

	deviceConfig := malgo.DeviceConfig{
		DeviceType:         malgo.Capture,
		SampleRate:         c.config.SampleRate,
		PeriodSizeInFrames: c.config.BufferSize,
		Capture: malgo.SubConfig{
			Format:   malgo.FormatF32,
			Channels: 1,
		},
	}

	if c.config.DeviceIndex >= 0 {
		devices, err := c.Devices()
		if err != nil {
			return err
		}
		if c.config.DeviceIndex >= len(devices) {
			return fmt.Errorf("device index %d out of range (have %d devices)",
				c.config.DeviceIndex, len(devices))
		}
		deviceConfig.Capture.DeviceID = devices[c.config.DeviceIndex].ID.Pointer()
	}

	onRecvFrames := func(outputSamples, inputSamples []byte, frameCount uint32) {
		if len(inputSamples) == 0 {
			return
		}

		chunk := bytesToComplex(inputSamples)

		// Non-blocking send so a slow consumer never stalls the
		// audio thread.
		select {
		case c.Samples <- chunk:
		default:
		}
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onRecvFrames,
	})
	if err != nil {
		return fmt.Errorf("init device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start device: %w", err)
	}

	c.mu.Lock()
	c.device = device
	c.running = true
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()

	return nil
}

// Stop stops capturing without releasing the backend
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return ErrNotRunning
	}

	if c.device != nil {
		_ = c.device.Stop()
		c.device.Uninit()
		c.device = nil
	}

	c.running = false
	return nil
}

// Close releases all audio resources. It is safe to call more than
// once.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.running && c.device != nil {
		_ = c.device.Stop()
		c.device.Uninit()
		c.device = nil
		c.running = false
	}

	if c.ctx != nil {
		if err := c.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninit context: %w", err)
		}
		c.ctx.Free()
		c.ctx = nil
	}

	close(c.Samples)
	return nil
}

// IsRunning returns true if capture is active
func (c *Capture) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// bytesToComplex converts raw little-endian float32 frames to complex
// baseband samples with zero quadrature.
func bytesToComplex(data []byte) []complex64 {
	numSamples := len(data) / 4
	samples := make([]complex64, numSamples)

	for i := 0; i < numSamples; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = complex(math.Float32frombits(bits), 0)
	}

	return samples
}
