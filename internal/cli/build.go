package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/orizon-lang/dwarfgen/internal/dwarfgen"
)

// objectPath returns the configured output path or derives one from the
// module file name.
func (a *app) objectPath(input string) string {
	if a.cfg.Output.Path != "" {
		return a.cfg.Output.Path
	}
	ext := ".o"
	if a.cfg.Dwarf.SplitDwarf {
		ext = ".dwo"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

func (a *app) buildObject(cmd *cobra.Command, input string) (*dwarfgen.Result, string, error) {
	res, err := a.generate(cmd.Context(), input)
	if err != nil {
		return nil, "", err
	}
	out := a.objectPath(input)
	if err := res.WriteObject(out, a.cfg.Format(), a.cfg.Output.TextBase); err != nil {
		return nil, "", fmt.Errorf("write %s: %w", out, err)
	}
	return res, out, nil
}

func newBuildCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <module.yaml>",
		Short: "Generate debug information and write it as an object file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, out, err := a.buildObject(cmd, args[0])
			if err != nil {
				return err
			}
			ok := color.New(color.FgGreen, color.Bold)
			ok.Fprint(cmd.OutOrStdout(), "wrote ")
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %d compile units, %d type units, %d entries)\n",
				out, a.cfg.Format(), len(res.CompileUnits), len(res.TypeUnits), res.EntryCount())
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "object file path (default: input with .o)")
	cmd.Flags().StringP("format", "f", "elf", "object format: elf, macho or coff")
	return cmd
}
