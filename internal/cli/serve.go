package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ponchocards/ponchocards/internal/server"
	"github.com/ponchocards/ponchocards/pkg/config"
	"github.com/ponchocards/ponchocards/pkg/store"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP admin API",
		Long: fmt.Sprintf(`Run the HTTP admin API.

Every /api route requires the admin token as a bearer token. Set it in the
[server] section of the config file or in %s.`, config.EnvAdminToken),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			return c.withStore(ctx, func(st store.Store) error {
				srv, err := server.New(server.Config{
					Store:       st,
					Runner:      runner,
					Deck:        cfg.PipelineOptions(),
					AdminToken:  cfg.Server.AdminToken,
					MaxUploadMB: cfg.Server.MaxUploadMB,
					Logger:      c.Logger,
				})
				if err != nil {
					return err
				}
				return srv.ListenAndServe(ctx, addr)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}
