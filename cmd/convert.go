package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kerem-kaynak/uvlhub/internal/convert"
	"github.com/spf13/cobra"
)

func newConvertCommand() *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Convert a UVL file to " + strings.Join(convert.FormatNames(), ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := convert.ParseFormat(strings.ToUpper(format))
			if err != nil {
				return fmt.Errorf("%w: %s", err, format)
			}

			//nolint:gosec // G304: the user names the file to convert
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			result, err := convert.Convert(filepath.Base(args[0]), content, f)
			if err != nil {
				return err
			}

			if out == "" {
				_, err = cmd.OutOrStdout().Write(result.Content)
				return err
			}
			if info, err := os.Stat(out); err == nil && info.IsDir() {
				out = filepath.Join(out, result.Filename)
			}
			if err := os.WriteFile(out, result.Content, 0o644); err != nil { //nolint:gosec // G306: converted models are public
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Wrote", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(convert.DIMACS), "target format")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory (default stdout)")
	return cmd
}
