package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orizon-lang/dwarfgen/internal/debuginfo"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

func newStripCommand(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "strip <module.yaml>",
		Short: "Remove all debug information from a module",
		Long: `strip removes debug intrinsic calls, instruction debug locations and
the debug anchors from a module and writes the result. Without -o the
module is written to standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := metadata.LoadModule(args[0])
			if err != nil {
				return err
			}
			changed := debuginfo.StripDebugInfo(m)
			a.log.Info().Str("module", m.Name).Bool("changed", changed).Msg("stripped")

			var buf bytes.Buffer
			if err := metadata.EncodeModule(&buf, m); err != nil {
				return err
			}
			if out == "" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the stripped module to this file")
	return cmd
}
