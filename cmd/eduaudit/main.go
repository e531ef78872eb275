// Command eduaudit checks school journals and builds performance reports
// from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"eduaudit/internal/app"
	"eduaudit/internal/config"
	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/infrastructure"
	"eduaudit/pkg/contracts"
	"eduaudit/pkg/contracts/domain"
)

var configFile string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "eduaudit",
		Short:         "Journal checks and performance reports for the school portal",
		Version:       contracts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to config.yaml (defaults to the usual locations)")

	root.AddCommand(newCheckCommand(), newReportCommand(), newCredentialsCommand(), newServeCommand())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCommand().ExecuteContext(ctx)
	_ = infrastructure.CloseLogFile()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorText(err))
		os.Exit(1)
	}
}

// errorText prefers the user message of application errors and falls back
// to the raw text for flag and usage errors.
func errorText(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return apperrors.UserMessage(err)
	}
	return err.Error()
}

// withApp loads the config, builds the application and closes it after fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	cfg, err := config.LoadFrom(configFile)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	go a.Hub.Run(ctx)
	return fn(ctx, a)
}

func printResult(cmd *cobra.Command, result *domain.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, result.Message)
	for _, f := range result.Files {
		fmt.Fprintf(out, "  %s\n", f)
	}
}
