package trace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestLoggerSinkLines verifies lines land in the sink in write order with
// their level tags
func TestLoggerSinkLines(t *testing.T) {
	sink := filepath.Join(t.TempDir(), "logs", "run.log")
	logger := NewLogger(sink)

	logger.Log(LevelSystem, "starting")
	logger.Cell(CellTrace{Row: 0, Col: 1, Column: "AMOUNT", Type: "Integer", Raw: "10.5", RawType: "string", Output: "10", Loss: true})
	logger.Cell(CellTrace{Row: 0, Col: 2, Column: "NAME", Type: "Character", Raw: "x", RawType: "string", Output: "x"})
	logger.Log(LevelError, "boom")
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(sink)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4: %q", len(lines), lines)
	}

	if !strings.Contains(lines[0], "[system] starting") {
		t.Errorf("line 0 = %q", lines[0])
	}
	// A lossy cell is warning severity; a clean cell stays trace-only.
	if !strings.Contains(lines[1], "[warning]") || !strings.Contains(lines[1], `"loss":true`) {
		t.Errorf("line 1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], "[trace]") {
		t.Errorf("line 2 = %q", lines[2])
	}
	if !strings.Contains(lines[3], "[error] boom") {
		t.Errorf("line 3 = %q", lines[3])
	}
}

// TestLoggerCellPayload verifies the trace entry serializes the coordinates
// and the raw input with its type tag
func TestLoggerCellPayload(t *testing.T) {
	sink := filepath.Join(t.TempDir(), "run.log")
	logger := NewLogger(sink)
	logger.Cell(CellTrace{Row: 3, Col: 0, Column: "WHEN", Type: "Date", Raw: 45366.0, RawType: "float64", Output: "2024-03-15", Loss: true})
	logger.Close()

	data, err := os.ReadFile(sink)
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	for _, want := range []string{`"row":3`, `"col":0`, `"column":"WHEN"`, `"rawType":"float64"`, `"output":"2024-03-15"`} {
		if !strings.Contains(line, want) {
			t.Errorf("trace line missing %s: %q", want, line)
		}
	}
}

// TestLoggerDegradesWithoutSink verifies an unopenable sink leaves a working
// console-only logger
func TestLoggerDegradesWithoutSink(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "taken")
	if err := os.WriteFile(blocked, []byte("file, not dir"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := NewLogger(filepath.Join(blocked, "sub", "run.log"))
	logger.Log(LevelWarning, "still alive") // must not panic
	if err := logger.Close(); err != nil {
		t.Errorf("Close on console-only logger: %v", err)
	}
}
