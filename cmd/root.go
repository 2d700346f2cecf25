// Package cmd assembles the RoomLens command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roomlens/roomlens-go/cmd/analyze"
	"github.com/roomlens/roomlens-go/cmd/benchmark"
	configcmd "github.com/roomlens/roomlens-go/cmd/config"
	"github.com/roomlens/roomlens-go/cmd/serve"
	"github.com/roomlens/roomlens-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "roomlens",
		Short: "RoomLens furniture hotspot detection",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		analyze.Command(settings),
		serve.Command(settings),
		benchmark.Command(settings),
		configcmd.Command(settings),
	)

	return rootCmd
}

func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"),
		"Enable debug output")
	rootCmd.PersistentFlags().StringVarP(&settings.Detector.ModelSource, "model", "m",
		viper.GetString("detector.modelsource"),
		"Path or URL of the detection model artifact")
	rootCmd.PersistentFlags().Float64VarP(&settings.Hotspot.ConfidenceThreshold, "threshold", "t",
		viper.GetFloat64("hotspot.confidencethreshold"),
		"Effective-confidence threshold for hotspot filtering")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		// Flag binding can only fail on programmer error.
		panic(fmt.Sprintf("error binding flags: %v", err))
	}
}
