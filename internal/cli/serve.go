package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/orizon-lang/dwarfgen/internal/server"
	"github.com/orizon-lang/dwarfgen/internal/watch"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <module.yaml>",
		Short: "Serve the generated units over HTTP/3, regenerating on change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tlsCfg, err := server.TLSConfig(a.cfg.Server.CertFile, a.cfg.Server.KeyFile, a.cfg.Server.Addr)
			if err != nil {
				return err
			}
			srv := server.New(a.log.With().Str("component", "server").Logger())
			h3 := server.NewHTTP3Server(a.cfg.Server.Addr, tlsCfg, srv.Handler())
			addr, err := h3.Start()
			if err != nil {
				return err
			}
			defer h3.Stop()
			a.log.Info().Str("addr", addr).Msg("serving over HTTP/3")

			w, err := watch.New(args[0], a.debounce(), a.log)
			if err != nil {
				return err
			}
			return w.Run(cmd.Context(), func(ctx context.Context) error {
				res, err := a.generate(ctx, args[0])
				if err != nil {
					return err
				}
				srv.Set(res)
				return nil
			})
		},
	}
	cmd.Flags().String("addr", "localhost:4433", "UDP address to listen on")
	return cmd
}
