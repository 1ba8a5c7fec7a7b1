package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/orizon-lang/dwarfgen/internal/die"
	"github.com/orizon-lang/dwarfgen/internal/dwarfunit"
)

func newDumpCommand(a *app) *cobra.Command {
	var (
		jsonOutput bool
		unitID     uint32
	)
	cmd := &cobra.Command{
		Use:   "dump <module.yaml>",
		Short: "Print the generated entry trees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.generate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var units []*dwarfunit.Unit
			if unitID != 0 {
				u := res.Context.Unit(unitID)
				if u == nil {
					return fmt.Errorf("no unit with id %d", unitID)
				}
				units = append(units, u)
			} else {
				for _, cu := range res.CompileUnits {
					units = append(units, &cu.Unit)
				}
				for _, tu := range res.TypeUnits {
					units = append(units, &tu.Unit)
				}
			}

			w := cmd.OutOrStdout()
			if jsonOutput {
				snaps := make([]die.EntrySnapshot, 0, len(units))
				for _, u := range units {
					snaps = append(snaps, die.Snapshot(u.Root()))
				}
				data, err := json.MarshalIndent(snaps, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(w, string(data))
				return err
			}
			head := color.New(color.FgMagenta, color.Bold)
			for _, u := range units {
				head.Fprintf(w, "unit %d: offset 0x%08x length 0x%08x version %d\n",
					u.ID(), u.Offset, u.Length, res.Context.Policy.DwarfVersion)
				if err := die.Fprint(w, u.Root()); err != nil {
					return err
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON snapshots")
	cmd.Flags().Uint32Var(&unitID, "unit", 0, "dump only the unit with this id")
	return cmd
}
