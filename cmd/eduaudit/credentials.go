package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"eduaudit/internal/app"
	api "eduaudit/pkg/contracts/api/v1"
)

func newCredentialsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the stored portal credentials",
	}

	var req api.CredentialsRequest
	save := &cobra.Command{
		Use:   "save",
		Short: "Encrypt and store the portal login and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.CredService.Save(ctx, req); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Credentials for %s saved\n", req.Login)
				return nil
			})
		},
	}
	save.Flags().StringVar(&req.Login, "login", "", "portal login")
	save.Flags().StringVar(&req.Password, "password", "", "portal password")
	_ = save.MarkFlagRequired("login")
	_ = save.MarkFlagRequired("password")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.CredService.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Credentials cleared")
				return nil
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether credentials are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				st, err := a.CredService.Status(ctx)
				if err != nil {
					return err
				}
				if !st.Stored {
					fmt.Fprintln(cmd.OutOrStdout(), "No credentials stored")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Credentials stored for %s\n", st.Login)
				return nil
			})
		},
	}

	cmd.AddCommand(save, clearCmd, status)
	return cmd
}
