package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{" Info ", InfoLevel},
		{"WARNING", WarnLevel},
		{"warn", WarnLevel},
		{"Error", ErrorLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDomainFields(t *testing.T) {
	tests := []struct {
		field Field
		key   string
		value any
	}{
		{EntityID("app-1"), "entity_id", "app-1"},
		{RelationshipID("r-9"), "relationship_id", "r-9"},
		{Depth(3), "depth", 3},
		{Version(7), "snapshot_version", uint64(7)},
		{RiskLevel("high"), "risk_level", "high"},
		{Operation("impact"), "operation", "impact"},
		{Latency(1500 * time.Millisecond), "latency", "1.5s"},
		{Error(errors.New("boom")), "error", "boom"},
		{Error(nil), "error", nil},
	}

	for _, tt := range tests {
		if tt.field.Key != tt.key || tt.field.Value != tt.value {
			t.Errorf("field = %+v, want {%s %v}", tt.field, tt.key, tt.value)
		}
	}
}

func TestJSONLogger_BasicLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Info("snapshot rebuilt", EntityID("x"), Count(3))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}
	if entry.Level != "INFO" {
		t.Errorf("Level = %v, want INFO", entry.Level)
	}
	if entry.Message != "snapshot rebuilt" {
		t.Errorf("Message = %v", entry.Message)
	}
	if entry.Fields["entity_id"] != "x" {
		t.Errorf("entity_id = %v, want x", entry.Fields["entity_id"])
	}
	if entry.Fields["count"] != float64(3) {
		t.Errorf("count = %v, want 3", entry.Fields["count"])
	}
	if entry.Time == "" {
		t.Error("Time field is empty")
	}
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(lines))
	}

	for i, want := range []string{"WARN", "ERROR"} {
		var entry LogEntry
		if err := json.Unmarshal([]byte(lines[i]), &entry); err != nil {
			t.Fatalf("Failed to unmarshal entry %d: %v", i, err)
		}
		if entry.Level != want {
			t.Errorf("entry %d level = %v, want %v", i, entry.Level, want)
		}
	}
}

func TestJSONLogger_WithSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	root := NewJSONLogger(&buf, InfoLevel)
	child := root.With(Component("engine"))

	child.Info("query", Operation("chains"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if entry.Fields["component"] != "engine" || entry.Fields["operation"] != "chains" {
		t.Errorf("fields = %v", entry.Fields)
	}

	buf.Reset()
	root.SetLevel(ErrorLevel)
	child.Info("suppressed")
	if buf.Len() != 0 {
		t.Error("child logger should follow the root level")
	}
	if child.GetLevel() != ErrorLevel {
		t.Errorf("child level = %v, want ERROR", child.GetLevel())
	}
}

func TestJSONLogger_NoFieldsOmitted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("message without fields")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if _, exists := entry["fields"]; exists {
		t.Error("Expected fields key to be omitted when empty")
	}
}

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLogger(&buf, DebugLevel)

	logger.Warn("slow query", Operation("critical_paths"), String("note", "two words"))

	line := buf.String()
	if !strings.Contains(line, "WARN  slow query") {
		t.Errorf("missing level and message: %q", line)
	}
	if !strings.Contains(line, `note="two words" operation=critical_paths`) {
		t.Errorf("fields not sorted or quoted: %q", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Error("line should end with newline")
	}
}

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archgraph.log")
	logger, closer, err := New(Config{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Debug("written to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file content = %q", data)
	}

	if _, _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	timer := StartTimer(logger, "impact computed", EntityID("z"))
	timer.End(RiskLevel("low"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if entry.Level != "DEBUG" {
		t.Errorf("Level = %v, want DEBUG", entry.Level)
	}
	for _, key := range []string{"entity_id", "risk_level", "latency"} {
		if _, ok := entry.Fields[key]; !ok {
			t.Errorf("missing field %q", key)
		}
	}

	buf.Reset()
	timer.EndError(errors.New("store down"))
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if entry.Level != "ERROR" || entry.Fields["error"] != "store down" {
		t.Errorf("EndError entry = %+v", entry)
	}
}

func TestGlobalHelperFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefaultLogger(NewJSONLogger(&buf, DebugLevel))
	t.Cleanup(func() { SetDefaultLogger(nil) })

	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	ErrorLog("error msg")
	With(String("service", "archgraph")).Info("child")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected 5 log entries, got %d", len(lines))
	}

	var last LogEntry
	if err := json.Unmarshal([]byte(lines[4]), &last); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if last.Fields["service"] != "archgraph" {
		t.Errorf("service field = %v", last.Fields["service"])
	}
}

func BenchmarkJSONLogger_Info(b *testing.B) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message", EntityID("app-1"), Depth(3))
	}
}
