// Package config implements configuration management commands.
package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roomlens/roomlens-go/internal/conf"
)

// Command returns the config command with its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage RoomLens configuration",
	}
	cmd.AddCommand(initCommand(), exportCommand(settings))
	return cmd
}

func initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config file if none exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := conf.EnsureDefaultConfig()
			if err != nil {
				return err
			}
			fmt.Printf("config file: %s\n", path)
			return nil
		},
	}
}

func exportCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "export [path]",
		Short: "Export the effective configuration as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conf.SaveAs(settings, args[0]); err != nil {
				return err
			}
			fmt.Printf("configuration written to %s\n", args[0])
			return nil
		},
	}
}
