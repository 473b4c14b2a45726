package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Push completions left in the durable queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd, depsOptions{})
		if err != nil {
			return err
		}
		defer d.Close()

		if d.cfg.Guest() {
			return errGuest
		}
		ctx := cmd.Context()
		if err := d.startTracker(ctx); err != nil {
			return err
		}
		flushErr := d.tracker.Flush(ctx)
		d.queue.Stop()
		if flushErr != nil {
			return fmt.Errorf("flush failed, %d items kept: %w", d.queue.Size(), flushErr)
		}
		fmt.Println("Queue is empty.")
		return nil
	},
}
