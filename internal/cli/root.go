package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/orizon-lang/dwarfgen/internal/config"
)

// flagKeys maps configuration keys to the persistent flags that override
// them.
var flagKeys = map[string]string{
	"dwarf.version":    "dwarf-version",
	"dwarf.addr_size":  "addr-size",
	"dwarf.split":      "split",
	"dwarf.type_units": "type-units",
	"workers":          "workers",
	"log.level":        "log-level",
	"log.pretty":       "log-pretty",
	"output.format":    "format",
	"output.path":      "output",
	"server.addr":      "addr",
}

// NewRootCommand creates the dwarfgen command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "dwarfgen",
		Short: "Build DWARF debug information entry trees from debug metadata",
		Long: `dwarfgen reads a module's debug metadata graph, builds one DWARF entry
tree per compile unit (optionally splitting identified types into type
units), and writes the result as an object file or a human-readable dump.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v := config.New(a.configFile)
			if err := config.BindFlags(v, cmd.Flags(), flagKeys); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			a.setup(cfg, cmd.ErrOrStderr())
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configFile, "config", "c", "", "configuration file (default ./dwarfgen.yaml)")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	pf.Uint16("dwarf-version", 4, "DWARF version (2-5)")
	pf.Uint8("addr-size", 8, "target address size in bytes (4 or 8)")
	pf.Bool("split", false, "emit split DWARF")
	pf.Bool("type-units", false, "move identified composite types into type units")
	pf.Int("workers", 0, "compile units built in parallel (0 builds sequentially)")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.Bool("log-pretty", true, "human-readable log output")

	root.AddCommand(
		newBuildCommand(a),
		newDumpCommand(a),
		newFindCommand(a),
		newStripCommand(a),
		newWatchCommand(a),
		newServeCommand(a),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
