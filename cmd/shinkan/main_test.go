package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig points every path at a temp directory so commands never
// touch the invoking user's real data.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	configPath := filepath.Join(root, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
export_dir = %q
series_file = %q

[logging]
format = "json"
level = "error"
`,
		filepath.Join(root, "data"),
		filepath.Join(root, "logs"),
		filepath.Join(root, "exports"),
		filepath.Join(root, "series.toml"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return configPath
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "shinkan ") {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestSeriesAddListRemove(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := executeCommand(t, "--config", configPath,
		"series", "add", "葬送のフリーレン",
		"--kind", "manga", "--translated", "Frieren")
	if err != nil {
		t.Fatalf("series add failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Tracking 葬送のフリーレン") {
		t.Fatalf("unexpected add output %q", out)
	}

	out, err = executeCommand(t, "--config", configPath, "series", "list")
	if err != nil {
		t.Fatalf("series list failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "葬送のフリーレン") || !strings.Contains(out, "Frieren") {
		t.Fatalf("series missing from list output:\n%s", out)
	}

	out, err = executeCommand(t, "--config", configPath, "series", "add", "葬送のフリーレン")
	if err == nil {
		t.Fatalf("duplicate add should fail, got:\n%s", out)
	}

	out, err = executeCommand(t, "--config", configPath, "series", "remove", "葬送のフリーレン")
	if err != nil {
		t.Fatalf("series remove failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Stopped tracking") {
		t.Fatalf("unexpected remove output %q", out)
	}
}

func TestReviewCommandsRoundTrip(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := executeCommand(t, "--config", configPath,
		"review", "reject", "4098501129", "--comment", "spin-off")
	if err != nil {
		t.Fatalf("review reject failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "rejected") {
		t.Fatalf("unexpected reject output %q", out)
	}

	out, err = executeCommand(t, "--config", configPath, "review", "show", "4098501129")
	if err != nil {
		t.Fatalf("review show failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "rejected") {
		t.Fatalf("unexpected show output %q", out)
	}

	if _, err := executeCommand(t, "--config", configPath, "review", "accept", "short"); err == nil {
		t.Fatal("malformed identifier should be rejected")
	}
}

func TestStatusCommandReportsEmptyDatabase(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := executeCommand(t, "--config", configPath, "status")
	if err != nil {
		t.Fatalf("status failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Volumes") || !strings.Contains(out, "Series tracked") {
		t.Fatalf("unexpected status output:\n%s", out)
	}
}

func TestExportCommandToStdout(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := executeCommand(t, "--config", configPath, "export", "--stdout")
	if err != nil {
		t.Fatalf("export failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "generated_at") {
		t.Fatalf("unexpected export output:\n%s", out)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	if out, err := executeCommand(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init failed: %v\n%s", err, out)
	}
	if _, err := executeCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
	if out, err := executeCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite init failed: %v\n%s", err, out)
	}
}
