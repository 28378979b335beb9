package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ipdata/ipdata/internal/logging"
	"github.com/ipdata/ipdata/internal/registry"
	"github.com/ipdata/ipdata/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API for the marketplace front-end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				app.Config.ListenAddr = addr
			}
			log := logging.NewLogger(logging.ModeServer)

			opts := server.Options{
				Config:      app.Config,
				Credentials: app.Credentials,
				Connection:  app.Validator,
				Uploads:     app.Uploads,
				Logger:      log,
			}
			reg, err := app.Registry()
			switch {
			case err == nil:
				opts.Registry = reg
			case errors.Is(err, registry.ErrNotConfigured):
				log.Warn().Msg("IPDATA_REGISTRY_URL not set, /api/register disabled")
			default:
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Listening on http://%s (Ctrl+C to stop)\n", app.Config.ListenAddr)
			return server.New(opts).Run(commandContext(cmd))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default IPDATA_LISTEN_ADDR or 127.0.0.1:8787)")
	return cmd
}
