// cmd/run.go
package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/meteorwatch/chirpdetect/internal/config"
	"github.com/meteorwatch/chirpdetect/internal/dsp"
	"github.com/meteorwatch/chirpdetect/internal/eventlog"
	"github.com/meteorwatch/chirpdetect/internal/iqstream"
	"github.com/meteorwatch/chirpdetect/internal/recovery"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// runFile drives the detector over a recorded sample file.
func runFile(ctx context.Context, path string) error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}

	// The input must be available before any detector resource is
	// acquired.
	in, err := iqstream.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	return runDetector(ctx, cfg, in.ReadSample)
}

// runDetector builds the detection pipeline and feeds it samples from
// next until the stream is exhausted. next reports io.EOF on a clean
// end of stream.
func runDetector(ctx context.Context, cfg *config.Settings, next func() (complex64, error)) error {
	out, err := iqstream.Create(cfg.OutputPath)
	if err != nil {
		return err
	}

	det, err := dsp.New(detectorConfig(cfg), out)
	if err != nil {
		out.Close()
		return err
	}
	defer det.Close()

	store, releaseStore, err := openEventStore(cfg)
	if err != nil {
		return err
	}
	defer releaseStore()

	var (
		events    chan eventlog.Event
		storeDone chan struct{}
	)
	if store != nil {
		events = make(chan eventlog.Event, 16)
		storeDone = make(chan struct{})
		go func() {
			defer recovery.HandlePanicFunc(releaseStore)
			defer close(storeDone)
			storeEvents(ctx, store, events)
		}()
	}

	runID := uuid.NewString()
	det.SetCallback(func(ev dsp.ChirpEvent) {
		writeChirpNotice(os.Stdout, ev)
		if events != nil {
			events <- eventlog.Event{
				RunID:      runID,
				Length:     ev.Length,
				Offset:     ev.Offset,
				DetectedAt: time.Now(),
			}
		}
	})

	var samples uint64
	for {
		s, err := next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, iqstream.ErrTruncatedStream) {
			glog.Warning("input stream ends mid-sample, stopping")
			break
		}
		if err != nil {
			return err
		}
		if err := det.Feed(s); err != nil {
			return err
		}
		samples++
	}
	glog.V(1).Infof("stream exhausted after %d samples", samples)

	if events != nil {
		close(events)
		<-storeDone
	}

	return det.Close()
}

// storeEvents forwards detected chirps to the event store. When the
// store fails it keeps draining the channel until the feed loop closes
// it, so the chirp callback can never block the detector.
func storeEvents(ctx context.Context, store eventlog.Store, events <-chan eventlog.Event) {
	if err := store.Write(ctx, events); err != nil {
		glog.Errorf("event store failed: %s", err)
		for range events {
		}
	}
}

func detectorConfig(s *config.Settings) dsp.Config {
	return dsp.Config{
		SampleRate:       s.SampleRate,
		CarrierOffset:    s.CarrierOffset,
		NoiseCutoff:      s.NoiseCutoff,
		SignalCutoff:     s.SignalCutoff,
		MinChirpDuration: s.MinChirpDuration,
		ThresholdRatio:   s.ThresholdRatio,
	}
}

// openEventStore returns the configured event store, or nil when
// persistence is disabled, plus a release function for its resources.
func openEventStore(cfg *config.Settings) (eventlog.Store, func(), error) {
	switch cfg.EventsStore {
	case "", "none":
		return nil, func() {}, nil
	case "sqlite":
		db, err := sql.Open("sqlite3", cfg.EventsDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite event store: %w", err)
		}
		return &eventlog.SQL{DB: db}, func() { _ = db.Close() }, nil
	case "mysql":
		db, err := sql.Open("mysql", cfg.EventsDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql event store: %w", err)
		}
		return &eventlog.MySQL{DB: db}, func() { _ = db.Close() }, nil
	case "csv":
		f, err := os.Create(cfg.EventsDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("create csv event store: %w", err)
		}
		return &eventlog.CSV{Out: f}, func() { _ = f.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported events store %q", cfg.EventsStore)
	}
}

// writeChirpNotice prints the console line for one detected chirp, with
// the stream-relative start time decomposed as HH:MM:SS.
func writeChirpNotice(w io.Writer, ev dsp.ChirpEvent) {
	seconds := int64(ev.Offset / time.Second)
	fmt.Fprintf(w, "Chirp of length %5d detected (at %02d:%02d:%02d)\n",
		ev.Length, seconds/3600, (seconds/60)%60, seconds%60)
}
