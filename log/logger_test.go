package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mwantia/docfs/data"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   Debug,
		"INFO":    Info,
		"":        Info,
		"warning": Warn,
		" error ": Error,
		"fatal":   Fatal,
	}

	for input, expected := range tests {
		level, err := ParseLevel(input)
		if err != nil {
			t.Errorf("ParseLevel(%q) failed: %v", input, err)
			continue
		}
		if level != expected {
			t.Errorf("ParseLevel(%q) = %s, expected %s", input, level, expected)
		}
	}

	if _, err := ParseLevel("loud"); !errors.Is(err, data.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("test", Warn, &buf)

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warn("shown %d", 3)
	l.Error("shown %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected lower levels to be dropped, got %q", out)
	}
	if !strings.Contains(out, "shown 3") || !strings.Contains(out, "shown 4") {
		t.Errorf("Expected warn and error lines, got %q", out)
	}
	if !strings.Contains(out, "[test]") {
		t.Errorf("Expected logger name, got %q", out)
	}
}

func TestLogger_NamedWith(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("docfs", Debug, &buf)

	l.Named("host").With("branch", "1500").Info("constructed")

	out := buf.String()
	if !strings.Contains(out, "[docfs/host]") {
		t.Errorf("Expected nested name, got %q", out)
	}
	if !strings.Contains(out, "constructed branch=1500") {
		t.Errorf("Expected field suffix, got %q", out)
	}

	buf.Reset()
	l.Info("plain")
	if strings.Contains(buf.String(), "branch=") {
		t.Errorf("Expected parent logger without fields, got %q", buf.String())
	}
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("docfs", Info, &buf)
	l.JSON = true

	l.With("api", "tabs").Warn("ambiguous %s", "schema")

	var entry logEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to decode %q: %v", buf.String(), err)
	}
	if entry.Level != "WARN" || entry.Message != "ambiguous schema" || entry.Service != "docfs" {
		t.Errorf("Unexpected entry %+v", entry)
	}
	if entry.Fields["api"] != "tabs" {
		t.Errorf("Expected api field, got %v", entry.Fields)
	}
}

func TestOrDiscard(t *testing.T) {
	l := OrDiscard(nil)
	if l == nil {
		t.Fatal("Expected a logger")
	}
	l.Error("dropped")

	var buf bytes.Buffer
	existing := NewWriterLogger("", Info, &buf)
	if OrDiscard(existing) != existing {
		t.Error("Expected the given logger to be returned")
	}
}
