package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openlaptop/viewer/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}

	log.Debug("hidden")
	log.Info("model validated", zap.String("path", "/models/sample-virgo.glb"), zap.Int("size", 1024))
	_ = log.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 log line (debug filtered), got %d: %q", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Log line is not JSON: %v", err)
	}
	if entry["msg"] != "model validated" {
		t.Errorf("Unexpected msg: %v", entry["msg"])
	}
	if entry["path"] != "/models/sample-virgo.glb" {
		t.Errorf("Unexpected path field: %v", entry["path"])
	}
}

func TestNewWithWriter_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.log")
	log, err := NewWithWriter(config.LoggingConfig{
		Level:      "debug",
		OutputPath: path,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	}, nil)
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}

	log.Debug("workflow dispatched", zap.String("ref", "main"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "workflow dispatched") {
		t.Errorf("Expected log file to contain message, got %q", string(data))
	}
}

func TestNewWithWriter_NoOutputs(t *testing.T) {
	log, err := NewWithWriter(config.LoggingConfig{}, nil)
	if err != nil {
		t.Fatalf("NewWithWriter failed: %v", err)
	}
	if log == nil {
		t.Fatal("Expected a no-op logger, got nil")
	}
	log.Info("discarded")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
