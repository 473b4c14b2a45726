package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/readkode/readkode/internal/screens/stats"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show progress and the activity calendar",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd, depsOptions{})
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.startTracker(cmd.Context()); err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(d.tracker.Stats())
		}
		fmt.Println(stats.Render(d.tracker.Record(), time.Now(), 80))
		return nil
	},
}

func init() {
	statsCmd.Flags().Bool("json", false, "Print the summary as JSON")
}
