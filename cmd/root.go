package cmd

import (
	"os"
	"path/filepath"

	"github.com/readkode/readkode/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "readkode",
	Short: "Learn to read code, one level at a time",
	Long:  "ReadKode is a terminal trainer for reading code: short exercises, XP, levels and streaks.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory (overrides READKODE_DATA_DIR)")
	rootCmd.PersistentFlags().String("user", "", "Signed-in user id; empty plays as guest (overrides READKODE_USER)")
	rootCmd.PersistentFlags().String("backend", "", "Progress backend: sqlite, mongo or memory (overrides READKODE_BACKEND)")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(flushCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(contentCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the environment, then applies flags (highest priority).
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
		if _, ok := os.LookupEnv("READKODE_DB"); !ok {
			cfg.DBPath = filepath.Join(dir, "readkode.db")
		}
	}
	if cmd.Flags().Changed("user") {
		cfg.UserID, _ = cmd.Flags().GetString("user")
	}
	if b, _ := cmd.Flags().GetString("backend"); b != "" {
		cfg.Backend = b
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
