package main

import (
	"context"

	"github.com/spf13/cobra"

	"eduaudit/internal/app"
	api "eduaudit/pkg/contracts/api/v1"
)

func newReportCommand() *cobra.Command {
	var req api.ReportRequest
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the performance report workbooks for a term",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				result, err := a.Runs.RunReport(ctx, req)
				if err != nil {
					return err
				}
				printResult(cmd, result)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Login, "login", "", "portal login (defaults to the stored credentials)")
	cmd.Flags().StringVar(&req.Password, "password", "", "portal password (defaults to the stored credentials)")
	cmd.Flags().IntVar(&req.Term, "term", 0, "term to report on (1-4)")
	cmd.Flags().IntVar(&req.StartGrade, "start-grade", 0, "first grade included in the report")
	return cmd
}
