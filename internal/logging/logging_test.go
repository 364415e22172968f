package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.arsenm.dev/devbridge/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestSetupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "devbridge.log")

	log, err := Setup(config.LogConfig{
		Level:   "warn",
		Format:  "json",
		Outputs: []string{path},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer zap.ReplaceGlobals(zap.NewNop())

	log.Info("dropped")
	log.Warn("kept", zap.String("channel", "file_helper"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["msg"] != "kept" || entry["channel"] != "file_helper" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestSetupRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotated.log")

	log, err := Setup(config.LogConfig{
		Level:   "debug",
		Outputs: []string{"ignored.log"},
		Rotation: config.RotationConfig{
			Enable:   true,
			Filename: path,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer zap.ReplaceGlobals(zap.NewNop())

	log.Debug("rotating")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "rotating") {
		t.Errorf("expected message in rotated file, got %q", data)
	}
	if _, err := os.Stat("ignored.log"); err == nil {
		t.Error("output path must not be used when rotation names a file")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zap.DebugLevel,
		"INFO":    zap.InfoLevel,
		"warning": zap.WarnLevel,
		"error":   zap.ErrorLevel,
		"":        zap.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("%q: expected %v, got %v", in, want, got)
		}
	}
}
