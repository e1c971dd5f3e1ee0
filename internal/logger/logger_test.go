package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "json", zerolog.InfoLevel)
	log.Debug().Msg("hidden")
	log.Info().Str("intent", "greeting").Msg("handled")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["intent"] != "greeting" || entry["message"] != "handled" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("missing timestamp")
	}
}

func TestNewWithWriterConsole(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "console", zerolog.DebugLevel).Debug().Msg("hello")
	if !strings.Contains(buf.String(), "hello") || strings.HasPrefix(buf.String(), "{") {
		t.Errorf("console output = %q", buf.String())
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("New with invalid level should fail")
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	log, err := New(Config{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	log.Info().Msg("to file")
}
