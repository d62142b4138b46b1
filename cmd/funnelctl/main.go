package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	app "github.com/okian/funnel/internal/app"
	"github.com/okian/funnel/internal/cli"
	"github.com/okian/funnel/internal/config"
	"github.com/okian/funnel/pkg/logger"
)

func main() {
	// Logs go to stderr so JSON and CSV output on stdout stays clean.
	if err := logger.InitWithWriter(os.Stderr); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}

	svc := app.New(app.WithDefaults(cfg.Options()))
	if err := cli.NewRootCommand(svc).ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("funnelctl: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
