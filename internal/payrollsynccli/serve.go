package payrollsynccli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/phillip-england/payrollsync/internal/apiapp"
	"github.com/phillip-england/payrollsync/internal/logging"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve starts the JSON API used to upload spreadsheets, review matches,
confirm names and send timesheets. It stops gracefully on SIGINT or SIGTERM.`,
		Args: exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.HTTP.Addr
			}
			ctx := a.context(cmd)
			if err := ensureParentDirs(cfg.Store.Path); err != nil {
				return err
			}

			p, err := a.pipeline(cfg)
			if err != nil {
				return err
			}
			m, err := a.mappings(cfg)
			if err != nil {
				return err
			}
			serverCfg := apiapp.Config{
				Addr:           addr,
				DBPath:         cfg.Store.Path,
				AdminUsername:  cfg.HTTP.AdminUsername,
				AdminPassword:  cfg.HTTP.AdminPassword,
				MaxUploadBytes: cfg.HTTP.MaxUploadMB << 20,
				Pipeline:       p,
				Builder:        cfg.Builder(),
				Mappings:       m,
				Logger:         logging.Default(),
			}
			if cfg.API.Enabled() {
				client, err := apiClient(ctx, cfg)
				if err != nil {
					return err
				}
				serverCfg.Submitter = client
			} else {
				logging.FromContext(ctx).Warn().Msg("payroll API credentials not set, live submission disabled")
			}

			if err := apiapp.Run(ctx, addr, serverCfg); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default http.addr)")
	return cmd
}
