package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"eduaudit/internal/app"
	"eduaudit/internal/config"
)

func newServeCommand() *cobra.Command {
	var (
		port        int
		openBrowser bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the live status stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFrom(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			ctx := cmd.Context()

			a, err := app.New(ctx, cfg, nil)
			if err != nil {
				return err
			}
			if openBrowser {
				go a.OpenBrowser(ctx)
			}

			serveErr := a.Serve(ctx)
			closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := a.Close(closeCtx); err != nil && serveErr == nil {
				return err
			}
			return serveErr
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides the config)")
	cmd.Flags().BoolVar(&openBrowser, "open", false, "open the UI in the default browser once ready")
	return cmd
}
