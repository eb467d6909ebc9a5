// cmd/root_test.go
package cmd

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/meteorwatch/chirpdetect/internal/config"
	"github.com/meteorwatch/chirpdetect/internal/dsp"
)

func TestRootCmd_HasExpectedFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	tests := []struct {
		name      string
		shorthand string
	}{
		{"samplerate", "r"},
		{"carrier", "c"},
		{"output", "o"},
		{"events", "e"},
		{"verbose", "v"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := flags.Lookup(tt.name)
			if flag == nil {
				t.Errorf("flag %q not found", tt.name)
				return
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("flag %q shorthand = %q, want %q", tt.name, flag.Shorthand, tt.shorthand)
			}
		})
	}
}

func TestRootCmd_RequiresInputFile(t *testing.T) {
	if err := rootCmd.Args(rootCmd, []string{}); err == nil {
		t.Error("no positional argument accepted, want usage error")
	}
	if err := rootCmd.Args(rootCmd, []string{"a.raw", "b.raw"}); err == nil {
		t.Error("two positional arguments accepted, want usage error")
	}
	if err := rootCmd.Args(rootCmd, []string{"a.raw"}); err != nil {
		t.Errorf("one positional argument rejected: %v", err)
	}
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	for _, name := range []string{"listen", "devices"} {
		found := false
		for _, sub := range rootCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestWriteChirpNotice(t *testing.T) {
	tests := []struct {
		name  string
		event dsp.ChirpEvent
		want  string
	}{
		{
			"stream start",
			dsp.ChirpEvent{Length: 560, Offset: 0},
			"Chirp of length   560 detected (at 00:00:00)\n",
		},
		{
			"hour minute second decomposition",
			dsp.ChirpEvent{Length: 12345, Offset: 3661 * time.Second},
			"Chirp of length 12345 detected (at 01:01:01)\n",
		},
		{
			"minutes only",
			dsp.ChirpEvent{Length: 731, Offset: 125 * time.Second},
			"Chirp of length   731 detected (at 00:02:05)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writeChirpNotice(&buf, tt.event)
			if buf.String() != tt.want {
				t.Errorf("notice = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestDetectorConfig_Mapping(t *testing.T) {
	s := &config.Settings{
		SampleRate:       8000,
		CarrierOffset:    1000,
		NoiseCutoff:      300,
		SignalCutoff:     50,
		MinChirpDuration: 0.07,
		ThresholdRatio:   0.25,
	}

	cfg := detectorConfig(s)
	if cfg.SampleRate != s.SampleRate ||
		cfg.CarrierOffset != s.CarrierOffset ||
		cfg.NoiseCutoff != s.NoiseCutoff ||
		cfg.SignalCutoff != s.SignalCutoff ||
		cfg.MinChirpDuration != s.MinChirpDuration ||
		cfg.ThresholdRatio != s.ThresholdRatio {
		t.Errorf("detectorConfig(%+v) = %+v, fields do not match", s, cfg)
	}
}

func TestOpenEventStore_Disabled(t *testing.T) {
	for _, name := range []string{"", "none"} {
		store, release, err := openEventStore(&config.Settings{EventsStore: name})
		if err != nil {
			t.Fatalf("openEventStore(%q) failed: %v", name, err)
		}
		if store != nil {
			t.Errorf("openEventStore(%q) = %v, want nil store", name, store)
		}
		release()
	}
}

func TestOpenEventStore_Unsupported(t *testing.T) {
	if _, _, err := openEventStore(&config.Settings{EventsStore: "postgres"}); err == nil {
		t.Error("openEventStore(postgres) = nil error, want unsupported")
	}
}

func TestOpenEventStore_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	store, release, err := openEventStore(&config.Settings{EventsStore: "csv", EventsDSN: path})
	if err != nil {
		t.Fatalf("openEventStore(csv) failed: %v", err)
	}
	defer release()

	if store == nil {
		t.Fatal("openEventStore(csv) = nil store")
	}
}
