package fileloader

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

// workbookFixture builds an in-memory workbook through the build function
func workbookFixture(t *testing.T, build func(f *excelize.File) error) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := build(f); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// TestWorkbookReaderBasic tests plain cell reads across rows
func TestWorkbookReaderBasic(t *testing.T) {
	data := workbookFixture(t, func(f *excelize.File) error {
		if err := f.SetSheetRow("Sheet1", "A1", &[]any{"name", "amount"}); err != nil {
			return err
		}
		return f.SetSheetRow("Sheet1", "A2", &[]any{"alpha", 10})
	})

	r, err := NewWorkbookReaderFromBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if !r.NextSheet() {
		t.Fatal("expected a sheet")
	}
	if r.SheetName() != "Sheet1" {
		t.Errorf("sheet name = %q", r.SheetName())
	}

	if !r.NextRow() {
		t.Fatal("expected the header row")
	}
	if r.ValueAt(0) != "name" || r.ValueAt(1) != "amount" {
		t.Errorf("header = %v, %v", r.ValueAt(0), r.ValueAt(1))
	}
	if !r.NextRow() {
		t.Fatal("expected the data row")
	}
	if r.ValueAt(1) != "10" {
		t.Errorf("amount = %v, want formatted 10", r.ValueAt(1))
	}
	if r.NextRow() {
		t.Error("expected exhaustion after the last row")
	}
}

// TestWorkbookReaderMergedRegion verifies child cells of a merged region
// redirect to the top-left value
func TestWorkbookReaderMergedRegion(t *testing.T) {
	data := workbookFixture(t, func(f *excelize.File) error {
		if err := f.SetCellValue("Sheet1", "A1", "merged"); err != nil {
			return err
		}
		if err := f.SetCellValue("Sheet1", "C1", "solo"); err != nil {
			return err
		}
		if err := f.SetCellValue("Sheet1", "A2", "below"); err != nil {
			return err
		}
		return f.MergeCell("Sheet1", "A1", "B1")
	})

	r, err := NewWorkbookReaderFromBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	r.NextSheet()

	if !r.NextRow() {
		t.Fatal("expected a row")
	}
	if r.ValueAt(0) != "merged" {
		t.Errorf("A1 = %v", r.ValueAt(0))
	}
	if r.ValueAt(1) != "merged" {
		t.Errorf("B1 = %v, want the redirect to A1", r.ValueAt(1))
	}
	if r.ValueAt(2) != "solo" {
		t.Errorf("C1 = %v", r.ValueAt(2))
	}

	if !r.NextRow() {
		t.Fatal("expected the second row")
	}
	if r.ValueAt(0) != "below" {
		t.Errorf("A2 = %v, merge redirect leaked past the region", r.ValueAt(0))
	}
}

// TestWorkbookReaderNegativeTimeSerial verifies a negative time-formatted
// serial is reconstructed as a signed duration
func TestWorkbookReaderNegativeTimeSerial(t *testing.T) {
	data := workbookFixture(t, func(f *excelize.File) error {
		custom := "[h]:mm:ss"
		styleID, err := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
		if err != nil {
			return err
		}
		// -1.5 days of day-fraction arithmetic: -36 hours.
		if err := f.SetCellValue("Sheet1", "A1", -1.5); err != nil {
			return err
		}
		return f.SetCellStyle("Sheet1", "A1", "A1", styleID)
	})

	r, err := NewWorkbookReaderFromBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	r.NextSheet()
	if !r.NextRow() {
		t.Fatal("expected a row")
	}

	got, ok := r.ValueAt(0).(time.Duration)
	if !ok {
		t.Fatalf("ValueAt(0) = %v (%T), want a duration", r.ValueAt(0), r.ValueAt(0))
	}
	if got != -36*time.Hour {
		t.Errorf("duration = %v, want -36h", got)
	}
}

// TestWorkbookReaderMultiSheet verifies sheet iteration resets row state
func TestWorkbookReaderMultiSheet(t *testing.T) {
	data := workbookFixture(t, func(f *excelize.File) error {
		if _, err := f.NewSheet("Second"); err != nil {
			return err
		}
		if err := f.SetCellValue("Sheet1", "A1", "one"); err != nil {
			return err
		}
		return f.SetCellValue("Second", "A1", "two")
	})

	r, err := NewWorkbookReaderFromBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var seen []string
	for r.NextSheet() {
		for r.NextRow() {
			if v, ok := r.ValueAt(0).(string); ok {
				seen = append(seen, v)
			}
		}
	}
	if len(seen) != 2 || seen[0] != "one" || seen[1] != "two" {
		t.Errorf("sheet values = %v, want [one two]", seen)
	}
}
