// cmd/root.go
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/meteorwatch/chirpdetect/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "chirpdetect <input-file>",
	Short: "Narrowband chirp detector for raw I/Q sample streams",
	Long: `Detects short narrowband chirp events (e.g. meteor-scatter reflections)
in a stream of complex baseband samples. Each detected chirp is reported on
the console; for every input sample one output sample is written carrying a
presence flag and the instantaneous phase.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFile(cmd.Context(), args[0])
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().Float64P("samplerate", "r", 8000, "input sample rate in Hz")
	rootCmd.PersistentFlags().Float64P("carrier", "c", 1000, "expected chirp carrier frequency in Hz")
	rootCmd.PersistentFlags().StringP("output", "o", "detect.raw", "path for the encoded output stream")
	rootCmd.PersistentFlags().StringP("events", "e", "none", "event store (none, sqlite, mysql, csv)")
	rootCmd.PersistentFlags().String("events-dsn", "", "event store destination (path or DSN)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable diagnostic logging")

	// Bind flags to viper
	viper.BindPFlag("sample_rate", rootCmd.PersistentFlags().Lookup("samplerate"))
	viper.BindPFlag("carrier_offset", rootCmd.PersistentFlags().Lookup("carrier"))
	viper.BindPFlag("output_path", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("events_store", rootCmd.PersistentFlags().Lookup("events"))
	viper.BindPFlag("events_dsn", rootCmd.PersistentFlags().Lookup("events-dsn"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// glog registers its flags on the standard flag set; parse it once
	// so logging does not complain, and route diagnostics to stderr.
	if !flag.Parsed() {
		_ = flag.CommandLine.Parse(nil)
	}
	_ = flag.Set("logtostderr", "true")
	if viper.GetBool("verbose") {
		_ = flag.Set("v", "1")
	}
}
