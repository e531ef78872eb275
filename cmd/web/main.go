// Command web runs the eduaudit server with its embedded status page.
package main

import (
	"context"
	"embed"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eduaudit/internal/app"
	"eduaudit/internal/config"
	"eduaudit/internal/infrastructure"
)

//go:embed all:frontend
var frontendFiles embed.FS

func main() {
	configFile := flag.String("config", "", "path to config.yaml")
	openBrowser := flag.Bool("open", true, "open the status page in the default browser")
	flag.Parse()

	if err := run(*configFile, *openBrowser); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		_ = infrastructure.CloseLogFile()
		os.Exit(1)
	}
	_ = infrastructure.CloseLogFile()
}

func run(configFile string, openBrowser bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFrom(configFile)
	if err != nil {
		return err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return err
	}
	if paths, err := config.GetPaths(); err == nil {
		if err := paths.EnsureDirectories(); err != nil {
			infrastructure.WithError(logger, err).Warn("Failed to create application directories")
		}
		paths.LogPathResolution(logger)
	}

	var opts []app.Option
	if frontend, err := fs.Sub(frontendFiles, "frontend"); err == nil {
		opts = append(opts, app.WithFrontend(frontend))
	} else {
		logger.Warn("Frontend embedding failed", slog.String("error", err.Error()))
	}

	application, err := app.New(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}
	if openBrowser {
		go application.OpenBrowser(ctx)
	}

	serveErr := application.Serve(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := application.Close(closeCtx); err != nil && serveErr == nil {
		return err
	}
	return serveErr
}
