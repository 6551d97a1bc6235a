package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mirkobrombin/dnsforge/internal/config"
)

func TestSetDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf)

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("Debug output before SetDebug: %q", buf.String())
	}

	l.SetDebug(true)
	l.Debugf("shown %d", 1)
	if !strings.Contains(buf.String(), "shown 1") {
		t.Errorf("Debug output missing: %q", buf.String())
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf).WithFields(Fields{"component": "api"})
	l.Warn("careful")

	out := buf.String()
	if !strings.Contains(out, "careful") || !strings.Contains(out, "component=") || !strings.Contains(out, "api") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestNewLogger_WritesFile(t *testing.T) {
	dir := t.TempDir()
	config.SetCustomLogDir(dir)
	defer config.SetCustomLogDir("")

	l, err := NewLogger("install", nil)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	var console bytes.Buffer
	l.SetOutput(&console)
	l.Info("redirected")
	if !strings.Contains(console.String(), "redirected") {
		t.Errorf("SetOutput not honored: %q", console.String())
	}

	matches, err := filepath.Glob(filepath.Join(dir, "install", "*", "*", "*.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("Expected one log file, got %v (%v)", matches, err)
	}
	if _, err := os.Stat(matches[0]); err != nil {
		t.Error(err)
	}
}
