package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestRunInit_WritesConfigAndDatabase(t *testing.T) {
	for _, key := range []string{"GENDBUNTU_DB_DRIVER", "GENDBUNTU_DB_DSN", "GENDBUNTU_DOCUMENTS_DIR"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	if err := runInit(cmd, dir); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".gendbuntu", "config.yaml")); err != nil {
		t.Errorf("expected config file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".gendbuntu", "gendbuntu.db")); err != nil {
		t.Errorf("expected database file: %v", err)
	}
	if !strings.Contains(out.String(), "Config written") {
		t.Errorf("unexpected output: %s", out.String())
	}

	out.Reset()
	if err := runInit(cmd, dir); err != nil {
		t.Fatalf("second runInit failed: %v", err)
	}
	if !strings.Contains(out.String(), "existing config") {
		t.Errorf("expected existing config on second run, got: %s", out.String())
	}
}
