package cmd

import (
	"path/filepath"
	"testing"

	"github.com/readkode/readkode/internal/config"
)

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("READKODE_DATA_DIR", filepath.Join(dir, "env"))
	t.Setenv("READKODE_BACKEND", config.BackendSQLite)
	t.Setenv("READKODE_USER", "env-user")

	err := rootCmd.ParseFlags([]string{
		"--data-dir", dir,
		"--backend", config.BackendMemory,
		"--user", "",
	})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	cfg, err := loadConfig(rootCmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.DataDir != dir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, dir)
	}
	if want := filepath.Join(dir, "readkode.db"); cfg.DBPath != want {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, want)
	}
	if cfg.Backend != config.BackendMemory {
		t.Errorf("Backend = %q, want %q", cfg.Backend, config.BackendMemory)
	}
	if !cfg.Guest() {
		t.Error("an empty --user should play as guest")
	}
}
