package testsupport

import (
	"path/filepath"
	"testing"

	"shinkan/internal/config"
)

// NewConfig returns a validated config rooted in a per-test temp directory.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Paths.ExportDir = filepath.Join(root, "export")
	cfg.Paths.SeriesFile = filepath.Join(root, "series.toml")
	cfg.Notifications.NtfyTopic = ""
	cfg.Metrics.Enabled = false

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate test config: %v", err)
	}
	return &cfg
}
