package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestBuildWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")

	log, err := Build(Options{JSON: true, OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	log.Debug("hidden")
	log.Info("analysis started", Candidate("Ana"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the info entry, got %d lines: %s", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry["step"] != "analysis started" || entry["level"] != "info" || entry[FieldCandidate] != "Ana" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewDebugLevel(t *testing.T) {
	log, err := New(false, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ce := log.Check(zapcore.DebugLevel, "debug"); ce == nil {
		t.Fatal("expected debug level to be enabled")
	}
}
