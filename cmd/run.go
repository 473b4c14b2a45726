package cmd

import (
	"context"

	"github.com/readkode/readkode/internal/app"
	"github.com/spf13/cobra"
)

// runApp opens the stores and launches the TUI, which loads progress on
// its welcome screen. Queued completions get one bounded flush on exit.
func runApp(cmd *cobra.Command) error {
	d, err := openDeps(cmd, depsOptions{logToFile: true})
	if err != nil {
		return err
	}
	defer d.Close()

	defer func() {
		if err := d.tracker.Close(context.Background()); err != nil {
			d.log.Warn("exit flush incomplete", "error", err)
		}
	}()

	return app.Run(app.Options{
		Tracker:   d.tracker,
		Library:   d.library,
		Explainer: d.explainer,
		Log:       d.log,
	})
}
