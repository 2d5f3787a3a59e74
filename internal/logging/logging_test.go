package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"vidrelay/internal/config"
)

func TestSetupLevel(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)

	cfg := config.Default()
	if _, err := Setup(cfg); err != nil {
		t.Fatal(err)
	}
	if logrus.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want info", logrus.GetLevel())
	}

	cfg.Debug = true
	if _, err := Setup(cfg); err != nil {
		t.Fatal(err)
	}
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", logrus.GetLevel())
	}
}

func TestSetupLogFile(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)

	cfg := config.Default()
	cfg.LogFile = filepath.Join(t.TempDir(), "logs", "vidrelay.log")

	closer, err := Setup(cfg)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	logrus.WithField("provider", "relay").Info("hello from test")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(cfg.LogFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") || !strings.Contains(string(data), "provider=relay") {
		t.Errorf("log file content = %q", data)
	}
}
