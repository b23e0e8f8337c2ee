package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("BUDGY_CLI_TEST=from-file\nBUDGY_CLI_KEEP=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BUDGY_CLI_TEST", "")
	os.Unsetenv("BUDGY_CLI_TEST")
	t.Setenv("BUDGY_CLI_KEEP", "from-env")

	LoadEnvFile(path)

	if got := os.Getenv("BUDGY_CLI_TEST"); got != "from-file" {
		t.Errorf("BUDGY_CLI_TEST = %q, want from-file", got)
	}
	if got := os.Getenv("BUDGY_CLI_KEEP"); got != "from-env" {
		t.Errorf("existing variable overridden: %q", got)
	}

	// A missing file is not an error.
	LoadEnvFile(filepath.Join(dir, "missing.env"))
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("debug", "json", "worker")
	if logger.Component() != "worker" {
		t.Errorf("component = %q", logger.Component())
	}
	if !logger.Enabled(context.Background(), -4) {
		t.Error("debug level should be enabled")
	}

	logger = SetupLogger("warn", "text", "")
	if logger.Component() != "app" {
		t.Errorf("default component = %q", logger.Component())
	}
	if logger.Enabled(context.Background(), 0) {
		t.Error("info should be disabled at warn level")
	}
}
