// cmd/run_test.go
package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/meteorwatch/chirpdetect/internal/config"
	"github.com/meteorwatch/chirpdetect/internal/eventlog"
	"github.com/meteorwatch/chirpdetect/internal/iqstream"
)

func testRunSettings(t *testing.T) *config.Settings {
	t.Helper()
	return &config.Settings{
		SampleRate:       8000,
		CarrierOffset:    1000,
		OutputPath:       filepath.Join(t.TempDir(), "detect.raw"),
		NoiseCutoff:      300,
		SignalCutoff:     50,
		MinChirpDuration: 0.07,
		EventsStore:      "none",
		DeviceIndex:      -1,
		BufferSize:       1024,
	}
}

// sliceFeed yields samples from a slice, then io.EOF.
func sliceFeed(samples []complex64) func() (complex64, error) {
	i := 0
	return func() (complex64, error) {
		if i >= len(samples) {
			return 0, io.EOF
		}
		s := samples[i]
		i++
		return s, nil
	}
}

func TestRunDetector_WritesOneOutputSamplePerInput(t *testing.T) {
	cfg := testRunSettings(t)

	const n = 1000
	if err := runDetector(context.Background(), cfg, sliceFeed(make([]complex64, n))); err != nil {
		t.Fatalf("runDetector failed: %v", err)
	}

	info, err := os.Stat(cfg.OutputPath)
	if err != nil {
		t.Fatalf("output stream missing: %v", err)
	}
	if info.Size() != n*iqstream.SampleSize {
		t.Errorf("output stream = %d bytes, want %d", info.Size(), n*iqstream.SampleSize)
	}
}

func TestRunDetector_InvalidDetectorConfig(t *testing.T) {
	cfg := testRunSettings(t)
	cfg.SignalCutoff = 400 // above the noise cutoff

	if err := runDetector(context.Background(), cfg, sliceFeed(nil)); err == nil {
		t.Error("runDetector = nil error for an invalid detector config")
	}
}

func TestRunDetector_TruncatedInputStopsCleanly(t *testing.T) {
	cfg := testRunSettings(t)

	fed := 0
	next := func() (complex64, error) {
		if fed >= 10 {
			return 0, iqstream.ErrTruncatedStream
		}
		fed++
		return 0, nil
	}

	if err := runDetector(context.Background(), cfg, next); err != nil {
		t.Fatalf("runDetector failed on truncated input: %v", err)
	}
}

// failingStore reports its error without consuming any events.
type failingStore struct{ err error }

func (s *failingStore) Write(context.Context, <-chan eventlog.Event) error { return s.err }

func TestStoreEvents_FailureKeepsDraining(t *testing.T) {
	events := make(chan eventlog.Event, 16)
	done := make(chan struct{})
	go func() {
		storeEvents(context.Background(), &failingStore{err: errors.New("unable to create table")}, events)
		close(done)
	}()

	// More events than the channel buffers; every send must still
	// complete even though the store gave up immediately.
	for i := 0; i < 64; i++ {
		select {
		case events <- eventlog.Event{Length: i}:
		case <-time.After(5 * time.Second):
			t.Fatalf("event send %d blocked after store failure", i)
		}
	}
	close(events)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event drain did not finish after the channel closed")
	}
}

func TestRunDetector_StoreSetupFailureIsNonFatal(t *testing.T) {
	cfg := testRunSettings(t)
	cfg.EventsStore = "sqlite"
	// The database directory does not exist, so table creation fails
	// as soon as the store starts up.
	cfg.EventsDSN = filepath.Join(t.TempDir(), "missing", "events.db")

	const n = 1000
	if err := runDetector(context.Background(), cfg, sliceFeed(make([]complex64, n))); err != nil {
		t.Fatalf("runDetector failed: %v", err)
	}

	info, err := os.Stat(cfg.OutputPath)
	if err != nil {
		t.Fatalf("output stream missing: %v", err)
	}
	if info.Size() != n*iqstream.SampleSize {
		t.Errorf("output stream = %d bytes, want %d", info.Size(), n*iqstream.SampleSize)
	}
}

func TestRunFile_MissingInput(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	seedViper(testRunSettings(t))

	// The input error must surface without touching any output path.
	err := runFile(context.Background(), filepath.Join(t.TempDir(), "missing.raw"))
	if err == nil {
		t.Fatal("runFile = nil error for a missing input file")
	}
	if !os.IsNotExist(errors.Unwrap(err)) {
		t.Errorf("runFile error = %v, want a missing-file error", err)
	}
}

func seedViper(s *config.Settings) {
	viper.Set("sample_rate", s.SampleRate)
	viper.Set("carrier_offset", s.CarrierOffset)
	viper.Set("output_path", s.OutputPath)
	viper.Set("noise_cutoff", s.NoiseCutoff)
	viper.Set("signal_cutoff", s.SignalCutoff)
	viper.Set("min_chirp_duration", s.MinChirpDuration)
	viper.Set("threshold_ratio", s.ThresholdRatio)
	viper.Set("events_store", s.EventsStore)
	viper.Set("events_dsn", s.EventsDSN)
	viper.Set("device_index", s.DeviceIndex)
	viper.Set("buffer_size", s.BufferSize)
}
