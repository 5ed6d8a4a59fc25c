// Package cmd is the medicnote command line: serve the API, migrate the
// schema and bootstrap admin accounts.
package cmd

import (
	"context"
	"os"

	"github.com/meinhoongagan/medicnote/config"
	"github.com/meinhoongagan/medicnote/logger"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "medicnote",
		Short:        "MedicNote prescription and care coordination API",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(createAdminCmd())
	return root
}

func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logger.Log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// loadConfig loads configuration and initializes the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Env, cfg.LogLevel)
	return cfg, nil
}
