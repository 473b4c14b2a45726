package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Import guest progress into the signed-in user's record",
	Long: "Copies the guest record on this device into the remote store when the user " +
		"has no remote record yet, then removes the guest copy.",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd, depsOptions{})
		if err != nil {
			return err
		}
		defer d.Close()

		if d.cfg.Guest() {
			return errGuest
		}
		migrated, err := d.gateway.MigrateFromLocal(cmd.Context(), d.cfg.UserID, d.local)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if migrated {
			fmt.Println("Guest progress imported.")
		} else {
			fmt.Println("Nothing to import.")
		}
		return nil
	},
}
