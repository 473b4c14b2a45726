package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var explainCmd = &cobra.Command{
	Use:   "explain <exercise-id>",
	Short: "Explain an exercise, generating one with the AI provider if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd, depsOptions{})
		if err != nil {
			return err
		}
		defer d.Close()

		ex, lv, ok := d.library.Exercise(args[0])
		if !ok {
			return fmt.Errorf("unknown exercise %q", args[0])
		}

		ctx := cmd.Context()
		if err := d.startTracker(ctx); err != nil {
			return err
		}
		defer d.tracker.Close(ctx)

		e, err := d.explainer.Explain(ctx, ex)
		if err != nil {
			return fmt.Errorf("explain %s: %w", ex.ID, err)
		}

		fmt.Printf("%s · %s (%s)\n\n", lv.ID, lv.Title, e.Source)
		fmt.Println(ex.Prompt)
		if lines := ex.CodeLines(); len(lines) > 0 {
			fmt.Println()
			for i, l := range lines {
				mark := " "
				for _, k := range e.KeyLines {
					if k == i+1 {
						mark = ">"
					}
				}
				fmt.Printf("%s%3d | %s\n", mark, i+1, l)
			}
		}
		fmt.Println()
		fmt.Println(strings.TrimSpace(e.Text()))
		return nil
	},
}
