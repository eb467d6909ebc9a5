// cmd/devices.go
package cmd

import (
	"fmt"

	"github.com/meteorwatch/chirpdetect/internal/audio"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available capture devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		capture := audio.New(audio.DefaultConfig())
		if err := capture.Init(); err != nil {
			return err
		}
		defer capture.Close()

		infos, err := capture.Devices()
		if err != nil {
			return err
		}
		for i, info := range infos {
			fmt.Printf("%2d: %s\n", i, info.Name())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
