package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/orizon-lang/dwarfgen/internal/watch"
)

func (a *app) debounce() time.Duration {
	return time.Duration(a.cfg.Watch.DebounceMS) * time.Millisecond
}

func newWatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <module.yaml>",
		Short: "Rebuild the object file whenever the module changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := watch.New(args[0], a.debounce(), a.log)
			if err != nil {
				return err
			}
			return w.Run(cmd.Context(), func(context.Context) error {
				_, out, err := a.buildObject(cmd, args[0])
				if err == nil {
					a.log.Info().Str("output", out).Msg("object written")
				}
				return err
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", "object file path (default: input with .o)")
	cmd.Flags().StringP("format", "f", "elf", "object format: elf, macho or coff")
	return cmd
}
