package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/orizon-lang/dwarfgen/internal/debuginfo"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

func printNodes(w io.Writer, m *metadata.Module, title string, ids []metadata.NodeID) {
	color.New(color.FgCyan, color.Bold).Fprintf(w, "%s (%d)\n", title, len(ids))
	for _, id := range ids {
		name := m.Ctx.Name(id)
		if name == "" {
			name = "<anonymous>"
		}
		fmt.Fprintf(w, "  %-6d %-16s %s\n", id, m.Ctx.KindOf(id), name)
	}
}

func newFindCommand(a *app) *cobra.Command {
	var identifiers bool
	cmd := &cobra.Command{
		Use:   "find <module.yaml>",
		Short: "List the debug nodes reachable from a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := metadata.LoadModule(args[0])
			if err != nil {
				return err
			}
			f := debuginfo.NewFinder()
			f.SetLogger(a.log)
			f.ProcessModule(m)

			w := cmd.OutOrStdout()
			printNodes(w, m, "compile units", f.CompileUnits())
			printNodes(w, m, "subprograms", f.Subprograms())
			printNodes(w, m, "global variables", f.GlobalVariables())
			printNodes(w, m, "types", f.Types())
			printNodes(w, m, "scopes", f.Scopes())
			if identifiers {
				tm := f.TypeIdentifierMap(m)
				color.New(color.FgCyan, color.Bold).Fprintf(w, "type identifiers (%d)\n", len(tm))
				idents := make([]string, 0, len(tm))
				for ident := range tm {
					idents = append(idents, ident)
				}
				sort.Strings(idents)
				for _, ident := range idents {
					fmt.Fprintf(w, "  %s -> %d\n", ident, tm[ident])
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&identifiers, "identifiers", false, "also print the type identifier map")
	return cmd
}
