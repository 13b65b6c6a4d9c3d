package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/config"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "college-forum",
		Short:         "College forum backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCommand(), migrateCommand())

	if err := root.ExecuteContext(ctx); err != nil {
		logging.New("info", os.Getenv("LOG_FORMAT"), os.Stderr).WithError(err).Fatal("command failed")
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
			return migrate(c.Context(), cfg, log)
		},
	}
}
