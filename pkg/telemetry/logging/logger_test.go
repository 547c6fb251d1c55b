package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"sentinel-hq/aegis/pkg/config"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Info("hello", "component", "test")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "hello" || entry["component"] != "test" {
		t.Errorf("Unexpected log entry: %v", entry)
	}
}

func TestSetupText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(config.LoggingConfig{Level: "info", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("Expected text output, got %q", buf.String())
	}
}

func TestSetupLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("Expected info suppressed at warn level, got %q", buf.String())
	}

	logger.Warn("emitted")
	if buf.Len() == 0 {
		t.Error("Expected warning emitted")
	}
}

func TestSetupRejectsInvalidConfig(t *testing.T) {
	if _, err := Setup(config.LoggingConfig{Level: "trace"}, nil); err == nil {
		t.Error("Expected error for invalid level")
	}
	if _, err := Setup(config.LoggingConfig{Format: "xml"}, nil); err == nil {
		t.Error("Expected error for invalid format")
	}
}
