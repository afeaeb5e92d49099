package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/kerem-kaynak/uvlhub/internal/uvl"
	"github.com/spf13/cobra"
)

func newParseCommand() *cobra.Command {
	var countOnly bool

	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Print the hierarchy of a UVL file as JSON and its feature count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			//nolint:gosec // G304: the user names the file to parse
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			if !countOnly {
				tree, err := uvl.ParseHierarchy(bytes.NewReader(content))
				if err != nil {
					return err
				}
				out, err := tree.MarshalIndent("  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			}

			count, err := uvl.NewCounter().Count(bytes.NewReader(content))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "features: %d\n", count)
			return nil
		},
	}

	cmd.Flags().BoolVar(&countOnly, "count", false, "print only the feature count")
	return cmd
}
