// cmd/listen.go
package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/meteorwatch/chirpdetect/internal/audio"
	"github.com/meteorwatch/chirpdetect/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Detect chirps from a live capture device",
	Long: `Captures mono audio from a sound device (for example a receiver's audio
output), treats it as complex baseband with zero quadrature, and runs the
detection pipeline on it until interrupted.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListen(cmd.Context())
	},
}

func init() {
	listenCmd.Flags().IntP("device", "d", -1, "capture device index (-1 for default)")
	viper.BindPFlag("device_index", listenCmd.Flags().Lookup("device"))

	rootCmd.AddCommand(listenCmd)
}

func runListen(ctx context.Context) error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	capture := audio.New(audio.Config{
		DeviceIndex: cfg.DeviceIndex,
		SampleRate:  uint32(cfg.SampleRate),
		BufferSize:  uint32(cfg.BufferSize),
	})
	if err := capture.Init(); err != nil {
		return err
	}
	defer capture.Close()

	if err := capture.Start(ctx); err != nil {
		return err
	}

	// Flatten captured chunks into the per-sample feed; interruption
	// reads as a clean end of stream.
	var pending []complex64
	next := func() (complex64, error) {
		for len(pending) == 0 {
			select {
			case <-ctx.Done():
				return 0, io.EOF
			case chunk, ok := <-capture.Samples:
				if !ok {
					return 0, io.EOF
				}
				pending = chunk
			}
		}
		s := pending[0]
		pending = pending[1:]
		return s, nil
	}

	return runDetector(ctx, cfg, next)
}
