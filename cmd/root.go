package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "uvlhub",
		Short:         "UVLHub feature model dataset portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (default ./uvlhub.yaml)")

	root.AddCommand(
		newServeCommand(&configPath),
		newMigrateCommand(&configPath),
		newConvertCommand(),
		newParseCommand(),
	)
	return root
}
