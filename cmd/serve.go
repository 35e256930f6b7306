package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/search-console-gateway/internal/api"
	"github.com/JakeFAU/search-console-gateway/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := a.Config()
			handler := api.NewServer(a.Reporter(), a.Exporter(), a.Events(), cfg, a.Logger().Named("api")).Handler()
			return server.ListenAndServe(ctx, cfg.Server.Port, handler, a.Logger())
		},
	}
}
