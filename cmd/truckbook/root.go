package main

import (
	"github.com/Ryan-Har/truckbook/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the truckbook command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "truckbook",
		Short: "Truck booking site accounts",
		Long: `truckbook serves signup, login and logout for the truck booking site
and owns the schema of its account database.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "YAML config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadConfig reads --config and the command's own flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path, cmd.Flags())
}
