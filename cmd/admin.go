package cmd

import (
	"fmt"
	"time"

	"github.com/meinhoongagan/medicnote/db"
	"github.com/meinhoongagan/medicnote/services"
	"github.com/spf13/cobra"
)

// createAdminCmd is the only way to obtain an admin account; the public
// register endpoint refuses the role.
func createAdminCmd() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, closeStore, err := db.NewStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			accounts := services.NewAccountService(store.Profiles, services.NewAuditService(store.SystemLogs), cfg.Secret(), time.Hour)
			p, err := accounts.CreateAdmin(cmd.Context(), email, password, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", p.Email, p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.Flags().StringVar(&name, "name", "Administrator", "admin full name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
