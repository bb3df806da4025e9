package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"tableforge/app/dbf"
	"tableforge/app/interfaces"
	"tableforge/app/trace"
)

func testTicket(path string, format interfaces.TargetFormat) *interfaces.ForgeTicket {
	return &interfaces.ForgeTicket{
		ID:         "t-1",
		OutputPath: path,
		Format:     format,
		Schema: []*interfaces.DetectedColumn{
			{Name: "ID", Type: interfaces.TypeInteger, Length: 10, Active: true},
			{Name: "NAME", Type: interfaces.TypeCharacter, Length: 20, Active: true},
			{Name: "WHEN", Type: interfaces.TypeDate, Length: 8, Active: true},
		},
		Rows: [][]string{
			{"10", "alpha", "2024-03-15"},
			{"20.5", "beta", "2024-03-16"},
		},
		Sources: []string{"sample.csv"},
	}
}

func newTestEngine() *Engine {
	return NewEngine(trace.NewLogger(""), nil, 3)
}

// TestExportCSV runs one ticket end to end through the delimited writer
func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	outcome := newTestEngine().Export(testTicket(path, interfaces.FormatCSV))

	// "20.5" into an Integer column drops the fraction: one lossy cell,
	// so the ticket succeeds with warnings.
	if outcome.Status != interfaces.StatusSucceededWithWarnings {
		t.Fatalf("status = %s, want succeeded_with_warnings (%s)", outcome.Status, outcome.Err)
	}
	if outcome.LossyCells != 1 {
		t.Errorf("lossy cells = %d, want 1", outcome.LossyCells)
	}
	if outcome.Path != path {
		t.Errorf("path = %s, want %s", outcome.Path, path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{"ID", "NAME", "WHEN"},
		{"10", "alpha", "2024-03-15"},
		{"20", "beta", "2024-03-16"},
	}
	if len(records) != len(want) {
		t.Fatalf("rows = %v, want %v", records, want)
	}
	for i := range want {
		if strings.Join(records[i], ",") != strings.Join(want[i], ",") {
			t.Errorf("row %d = %v, want %v", i, records[i], want[i])
		}
	}
}

// TestExportDBF verifies the binary writer output re-reads through the codec
func TestExportDBF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.dbf")
	outcome := newTestEngine().Export(testTicket(path, interfaces.FormatDBF))

	if outcome.Status != interfaces.StatusSucceededWithWarnings {
		t.Fatalf("status = %s (%s)", outcome.Status, outcome.Err)
	}

	data, err := os.ReadFile(outcome.Path)
	if err != nil {
		t.Fatal(err)
	}
	reader, err := dbf.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a readable table: %v", err)
	}
	if reader.RecordCount() != 2 {
		t.Errorf("record count = %d, want 2", reader.RecordCount())
	}

	fields := reader.Fields()
	if fields[0].Type != dbf.TypeNumeric || fields[0].Decimals != 0 {
		t.Errorf("integer column mapped to %+v, want numeric with 0 decimals", fields[0])
	}
	if fields[2].Type != dbf.TypeDate {
		t.Errorf("date column mapped to %+v", fields[2])
	}

	first, err := reader.Read()
	if err != nil {
		t.Fatal(err)
	}
	if first[0] != 10.0 {
		t.Errorf("first record id = %v, want 10", first[0])
	}
	if first[1] != "alpha" {
		t.Errorf("first record name = %v, want alpha", first[1])
	}
}

// TestExportXLSX verifies the spreadsheet writer produces a readable
// workbook with a header row
func TestExportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	outcome := newTestEngine().Export(testTicket(path, interfaces.FormatXLSX))

	if outcome.Status != interfaces.StatusSucceededWithWarnings {
		t.Fatalf("status = %s (%s)", outcome.Status, outcome.Err)
	}

	book, err := excelize.OpenFile(outcome.Path)
	if err != nil {
		t.Fatalf("output is not a readable workbook: %v", err)
	}
	defer book.Close()

	rows, err := book.GetRows("Sheet1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("row count = %d, want header plus 2", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][1] != "NAME" || rows[0][2] != "WHEN" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "10" || rows[1][1] != "alpha" {
		t.Errorf("first data row = %v", rows[1])
	}
}

// TestExportPathSuffixing verifies an unopenable requested path falls back
// to a _N sibling instead of failing the ticket
func TestExportPathSuffixing(t *testing.T) {
	dir := t.TempDir()
	requested := filepath.Join(dir, "out.csv")
	// A directory at the requested path makes the create fail.
	if err := os.Mkdir(requested, 0o755); err != nil {
		t.Fatal(err)
	}

	outcome := newTestEngine().Export(testTicket(requested, interfaces.FormatCSV))
	if outcome.Status == interfaces.StatusFailed {
		t.Fatalf("export failed: %s", outcome.Err)
	}
	want := filepath.Join(dir, "out_1.csv")
	if outcome.Path != want {
		t.Errorf("path = %s, want %s", outcome.Path, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("suffixed output missing: %v", err)
	}
}

// TestExportFailureIsIsolated verifies a ticket that cannot write anywhere
// reports failure through its outcome rather than panicking
func TestExportFailureIsIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "deeper", "out.csv")
	outcome := newTestEngine().Export(testTicket(path, interfaces.FormatCSV))

	if outcome.Status != interfaces.StatusFailed {
		t.Fatalf("status = %s, want failed", outcome.Status)
	}
	if outcome.Err == "" {
		t.Error("failed outcome must carry an error message")
	}
}
