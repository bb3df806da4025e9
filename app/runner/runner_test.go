package runner

import (
	"os"
	"path/filepath"
	"testing"

	"tableforge/app/events"
	"tableforge/app/fileloader"
	"tableforge/app/interfaces"
	"tableforge/app/settings"
	"tableforge/app/ticket"
	"tableforge/app/trace"
)

func newTestRunner() *Runner {
	return NewRunner(trace.NewLogger(""), events.NewBus(), settings.GetEffectiveSettings())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestAnalyzeCSV runs the analysis pass over a delimited source
func TestAnalyzeCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sales.csv",
		"name,amount,when\n"+
			"alpha,10,2024-01-01\n"+
			"beta,20.5,2024-01-02\n"+
			"gamma,30,2024-01-03\n")

	sets := newTestRunner().Analyze([]string{path})
	if len(sets) != 1 {
		t.Fatalf("record sets = %d, want 1", len(sets))
	}

	set := sets[0]
	if set.FileName != "sales.csv" {
		t.Errorf("file name = %s", set.FileName)
	}
	if len(set.Rows) != 3 {
		t.Errorf("rows = %d, want 3 data rows", len(set.Rows))
	}
	if !set.Enabled {
		t.Error("new record sets start enabled")
	}
	if set.ID == "" {
		t.Error("record set needs an identifier")
	}

	if len(set.Schema) != 3 {
		t.Fatalf("schema = %d columns, want 3", len(set.Schema))
	}
	if set.Schema[0].Name != "name" || set.Schema[0].Type != interfaces.TypeCharacter {
		t.Errorf("column 0 = %+v", set.Schema[0])
	}
	if set.Schema[1].Type != interfaces.TypeNumeric {
		t.Errorf("column 1 type = %s, want Numeric", set.Schema[1].Type)
	}
	if set.Schema[2].Type != interfaces.TypeDate {
		t.Errorf("column 2 type = %s, want Date", set.Schema[2].Type)
	}
}

// TestAnalyzeNoHeaderRow verifies headerless sources keep their first row as
// data and get synthetic column names
func TestAnalyzeNoHeaderRow(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "raw.csv",
		"alpha,10\n"+
			"beta,20\n")

	opts := fileloader.DefaultFileOptions()
	opts.NoHeaderRow = true
	sets := newTestRunner().AnalyzeWithOptions([]string{path}, opts)
	if len(sets) != 1 {
		t.Fatalf("record sets = %d, want 1", len(sets))
	}

	set := sets[0]
	if len(set.Rows) != 2 {
		t.Errorf("rows = %d, want both rows kept as data", len(set.Rows))
	}
	if len(set.Schema) != 2 {
		t.Fatalf("schema = %d columns, want 2", len(set.Schema))
	}
	if set.Schema[0].Name != "Unnamed_A" || set.Schema[1].Name != "Unnamed_B" {
		t.Errorf("synthetic names = %s, %s", set.Schema[0].Name, set.Schema[1].Name)
	}
	if set.Schema[1].Type != interfaces.TypeInteger {
		t.Errorf("column 1 type = %s, want Integer", set.Schema[1].Type)
	}
}

// TestAnalyzeSkipsUnreadable verifies one bad file does not fail the run
func TestAnalyzeSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.csv", "a,b\n1,2\n")
	bad := filepath.Join(dir, "missing.csv")

	sets := newTestRunner().Analyze([]string{bad, good})
	if len(sets) != 1 {
		t.Fatalf("record sets = %d, want only the readable file", len(sets))
	}
	if sets[0].FileName != "good.csv" {
		t.Errorf("file name = %s", sets[0].FileName)
	}
}

// TestAnalyzeDirectory verifies directory paths expand to their files
func TestAnalyzeDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.csv", "a\n1\n")
	writeFile(t, dir, "two.csv", "b\n2\n")
	writeFile(t, dir, "ignored.bin", "not tabular")

	sets := newTestRunner().Analyze([]string{dir})
	if len(sets) != 2 {
		t.Fatalf("record sets = %d, want 2", len(sets))
	}
}

// TestAnalyzeCacheHit verifies a repeated analysis of an unchanged file is
// served from the cache
func TestAnalyzeCacheHit(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.csv", "a,b\n1,2\n")

	run := newTestRunner()
	first := run.Analyze([]string{path})
	second := run.Analyze([]string{path})

	if len(first) != 1 || len(second) != 1 {
		t.Fatal("expected one record set per run")
	}
	// The cache returns the analyzed set itself, identifier included.
	if first[0].ID != second[0].ID {
		t.Error("expected the second run to reuse the cached record set")
	}
}

// TestEndToEndExport runs analyze, build and export over a real file
func TestEndToEndExport(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "input.csv",
		"id,label\n"+
			"1,alpha\n"+
			"2,beta\n")

	run := newTestRunner()
	sets := run.Analyze([]string{path})
	if len(sets) != 1 {
		t.Fatal("expected one record set")
	}

	outDir := t.TempDir()
	tickets := ticket.BuildIndependent(sets, interfaces.FormatCSV, outDir)
	if len(tickets) != 1 {
		t.Fatal("expected one ticket")
	}

	outcomes := run.ExportRun(tickets)
	if len(outcomes) != 1 {
		t.Fatal("expected one outcome")
	}
	if outcomes[0].Status != interfaces.StatusSucceeded {
		t.Fatalf("status = %s (%s)", outcomes[0].Status, outcomes[0].Err)
	}

	preview, err := run.Preview(outcomes[0].Path)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(preview) != 3 {
		t.Errorf("preview rows = %d, want header plus 2", len(preview))
	}
	if preview[0][0] != "ID" || preview[0][1] != "LABEL" {
		t.Errorf("preview header = %v", preview[0])
	}
}

// TestExportRunIsolation verifies a failing ticket does not stop later ones
func TestExportRunIsolation(t *testing.T) {
	dir := t.TempDir()
	schema := []*interfaces.DetectedColumn{
		{Name: "A", Type: interfaces.TypeCharacter, Length: 10, Active: true},
	}
	tickets := []*interfaces.ForgeTicket{
		{
			ID:         "bad",
			OutputPath: filepath.Join(dir, "no", "such", "dir", "a.csv"),
			Format:     interfaces.FormatCSV,
			Schema:     schema,
			Rows:       [][]string{{"x"}},
		},
		{
			ID:         "good",
			OutputPath: filepath.Join(dir, "b.csv"),
			Format:     interfaces.FormatCSV,
			Schema:     schema,
			Rows:       [][]string{{"y"}},
		},
	}

	outcomes := newTestRunner().ExportRun(tickets)
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(outcomes))
	}
	if outcomes[0].Status != interfaces.StatusFailed {
		t.Errorf("first ticket status = %s, want failed", outcomes[0].Status)
	}
	if outcomes[1].Status != interfaces.StatusSucceeded {
		t.Errorf("second ticket status = %s, want succeeded", outcomes[1].Status)
	}
}

// TestValidateSample verifies the preview sanitization pass mirrors schema
// edits
func TestValidateSample(t *testing.T) {
	set := &interfaces.SourceRecordSet{
		Schema: []*interfaces.DetectedColumn{
			{Name: "n", Type: interfaces.TypeInteger, Length: 10, Active: true},
		},
		Sample: []*interfaces.Row{
			{RowIndex: 0, Cells: []any{"10"}},
			{RowIndex: 1, Cells: []any{"10.5"}},
		},
	}

	results := newTestRunner().ValidateSample(set)
	if len(results) != 2 {
		t.Fatalf("results = %d rows, want 2", len(results))
	}
	if results[0][0].Loss {
		t.Error("whole number should be lossless")
	}
	if !results[1][0].Loss || results[1][0].Value != "10" {
		t.Errorf("fractional integer = %+v, want lossy 10", results[1][0])
	}
}
