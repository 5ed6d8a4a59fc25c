package cmd

import (
	"fmt"

	"github.com/meinhoongagan/medicnote/db"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DBDriver != "postgres" {
				return fmt.Errorf("migrate needs DB_DRIVER=postgres, got %q", cfg.DBDriver)
			}
			gdb, err := db.Open(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := gdb.DB(); err == nil {
				defer sqlDB.Close()
			}
			return db.Migrate(gdb)
		},
	}
}
