// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	AppName       = "chirpdetect"
	ConfigType    = "yaml"
	DefaultConfig = `# Chirp Detector Configuration

# Stream parameters
sample_rate: 8000       # Input sample rate in Hz
carrier_offset: 1000    # Expected chirp carrier frequency in Hz (may be negative)
output_path: detect.raw # Destination for the encoded output stream

# Detection pipeline
noise_cutoff: 300       # Wide low-pass cutoff in Hz (noise power estimate)
signal_cutoff: 50       # Narrow low-pass cutoff in Hz (chirp isolation)
min_chirp_duration: 0.07 # Shortest chirp of interest in seconds; sets the
                         # integration window and the power EMA time constant
threshold_ratio: 0      # Per-sample power ratio counted as chirp energy.
                        # 0 derives 2 * signal_cutoff / noise_cutoff, the
                        # expected gain difference between the two filters.

# Event persistence
events_store: none      # One of: none, sqlite, mysql, csv
events_dsn: ""          # sqlite: database path; mysql: DSN; csv: file path

# Live capture (listen mode)
device_index: -1        # -1 for default capture device
buffer_size: 1024       # Frames per capture callback

# Output
verbose: false          # Enable diagnostic logging to stderr
`
)

// Settings holds all application configuration
type Settings struct {
	// Stream parameters
	SampleRate    float64 `mapstructure:"sample_rate"`
	CarrierOffset float64 `mapstructure:"carrier_offset"`
	OutputPath    string  `mapstructure:"output_path"`

	// Detection pipeline
	NoiseCutoff      float64 `mapstructure:"noise_cutoff"`
	SignalCutoff     float64 `mapstructure:"signal_cutoff"`
	MinChirpDuration float64 `mapstructure:"min_chirp_duration"`
	ThresholdRatio   float64 `mapstructure:"threshold_ratio"`

	// Event persistence
	EventsStore string `mapstructure:"events_store"`
	EventsDSN   string `mapstructure:"events_dsn"`

	// Live capture
	DeviceIndex int `mapstructure:"device_index"`
	BufferSize  int `mapstructure:"buffer_size"`

	// Output
	Verbose bool `mapstructure:"verbose"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/chirpdetect/
func Init() error {
	viper.SetDefault("sample_rate", 8000)
	viper.SetDefault("carrier_offset", 1000)
	viper.SetDefault("output_path", "detect.raw")
	viper.SetDefault("noise_cutoff", 300)
	viper.SetDefault("signal_cutoff", 50)
	viper.SetDefault("min_chirp_duration", 0.07)
	viper.SetDefault("threshold_ratio", 0)
	viper.SetDefault("events_store", "none")
	viper.SetDefault("events_dsn", "")
	viper.SetDefault("device_index", -1)
	viper.SetDefault("buffer_size", 1024)
	viper.SetDefault("verbose", false)

	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config found - create default in ~/.config/chirpdetect/
			xdgConfigPath := filepath.Join(configDir, AppName)
			if err = ensureConfigExists(xdgConfigPath); err != nil {
				return err
			}
			if err = viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		} else {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	if s.SampleRate <= 0 || s.SampleRate > 1000000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 1 and 1000000 Hz, got %v", s.SampleRate))
	}
	nyquist := s.SampleRate / 2

	if math.Abs(s.CarrierOffset) >= nyquist {
		errs = append(errs, fmt.Errorf("carrier_offset magnitude (%v Hz) must be less than Nyquist frequency (%v Hz)", s.CarrierOffset, nyquist))
	}
	if s.OutputPath == "" {
		errs = append(errs, errors.New("output_path must not be empty"))
	}

	if s.NoiseCutoff <= 0 || s.NoiseCutoff >= nyquist {
		errs = append(errs, fmt.Errorf("noise_cutoff must be between 0 and Nyquist frequency (%v Hz), got %v", nyquist, s.NoiseCutoff))
	}
	if s.SignalCutoff <= 0 || s.SignalCutoff >= nyquist {
		errs = append(errs, fmt.Errorf("signal_cutoff must be between 0 and Nyquist frequency (%v Hz), got %v", nyquist, s.SignalCutoff))
	}
	if s.SignalCutoff >= s.NoiseCutoff {
		errs = append(errs, fmt.Errorf("signal_cutoff (%v Hz) must be below noise_cutoff (%v Hz)", s.SignalCutoff, s.NoiseCutoff))
	}
	if s.MinChirpDuration <= 0 || s.MinChirpDuration > 10 {
		errs = append(errs, fmt.Errorf("min_chirp_duration must be between 0 and 10 seconds, got %v", s.MinChirpDuration))
	}
	if s.ThresholdRatio < 0 {
		errs = append(errs, fmt.Errorf("threshold_ratio must not be negative, got %v", s.ThresholdRatio))
	}

	switch s.EventsStore {
	case "none":
	case "sqlite", "mysql", "csv":
		if s.EventsDSN == "" {
			errs = append(errs, fmt.Errorf("events_dsn is required for events_store %q", s.EventsStore))
		}
	default:
		errs = append(errs, fmt.Errorf("events_store must be one of none, sqlite, mysql, csv, got %q", s.EventsStore))
	}

	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
