package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset progress to a fresh record",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return errors.New("this erases all progress; run again with --yes to confirm")
		}

		d, err := openDeps(cmd, depsOptions{})
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := cmd.Context()
		if d.cfg.Guest() {
			if err := d.local.Clear(ctx); err != nil {
				return fmt.Errorf("reset guest progress: %w", err)
			}
			fmt.Println("Guest progress reset.")
			return nil
		}

		if err := d.queue.Clear(ctx); err != nil {
			return fmt.Errorf("clear queue: %w", err)
		}
		if _, err := d.gateway.ResetProgress(ctx, d.cfg.UserID); err != nil {
			return fmt.Errorf("reset progress: %w", err)
		}
		fmt.Printf("Progress reset for %s.\n", d.cfg.UserID)
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
}
