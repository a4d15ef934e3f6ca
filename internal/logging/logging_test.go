package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/raysh454/hdrscan/internal/logging"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestStdoutLogger_WritesJSONLines(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := logging.NewWriterLogger("test", &buf)

	l.Info("hello", logging.Field{Key: "n", Value: 3})
	l.Error("boom", logging.Field{Key: "error", Value: errors.New("bad")})

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0]["level"] != "info" || entries[0]["msg"] != "hello" || entries[0]["component"] != "test" {
		t.Errorf("unexpected first entry: %v", entries[0])
	}
	fields := entries[1]["fields"].(map[string]any)
	if fields["error"] != "bad" {
		t.Errorf("expected error rendered as string, got %v", fields["error"])
	}
}

func TestStdoutLogger_WithComponentAndFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := logging.NewWriterLogger("root", &buf)

	child := l.With(logging.Field{Key: "component", Value: "store"}, logging.Field{Key: "backend", Value: "memory"})
	child.Warn("careful")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0]["component"] != "store" {
		t.Errorf("expected component store, got %v", entries[0]["component"])
	}
	fields := entries[0]["fields"].(map[string]any)
	if fields["backend"] != "memory" {
		t.Errorf("expected persistent backend field, got %v", fields)
	}
}
