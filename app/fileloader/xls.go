package fileloader

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/extrame/xls"
)

// LegacyWorkbookReader reads the legacy binary workbook variant. The library
// hands back display strings per cell; merged-region metadata is not exposed
// by this format's reader, so values come through as stored.
type LegacyWorkbookReader struct {
	workbook   *xls.WorkBook
	closer     io.Closer
	sheetIdx   int
	sheet      *xls.WorkSheet
	rowIdx     int
	fieldCount int
}

// legacyCharset is the single-byte Western code page legacy workbooks carry
const legacyCharset = "cp1252"

// NewLegacyWorkbookReader opens a legacy workbook file as a TableReader
func NewLegacyWorkbookReader(filePath string) (*LegacyWorkbookReader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	wb, err := xls.OpenReader(f, legacyCharset)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open legacy workbook: %w", err)
	}
	return &LegacyWorkbookReader{
		workbook: wb,
		closer:   f,
		sheetIdx: -1,
	}, nil
}

// NewLegacyWorkbookReaderFromBytes opens in-memory legacy workbook data as a
// TableReader
func NewLegacyWorkbookReaderFromBytes(data []byte) (*LegacyWorkbookReader, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), legacyCharset)
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy workbook: %w", err)
	}
	return &LegacyWorkbookReader{
		workbook: wb,
		sheetIdx: -1,
	}, nil
}

// NextSheet advances to the next sheet
func (r *LegacyWorkbookReader) NextSheet() bool {
	for {
		r.sheetIdx++
		if r.sheetIdx >= r.workbook.NumSheets() {
			return false
		}
		r.sheet = r.workbook.GetSheet(r.sheetIdx)
		if r.sheet == nil {
			continue
		}
		r.rowIdx = -1
		r.fieldCount = 0
		return true
	}
}

// NextRow advances to the next row of the current sheet
func (r *LegacyWorkbookReader) NextRow() bool {
	if r.sheet == nil || r.rowIdx+1 > int(r.sheet.MaxRow) {
		return false
	}
	r.rowIdx++
	if row := r.sheet.Row(r.rowIdx); row != nil {
		if w := row.LastCol(); w > r.fieldCount {
			r.fieldCount = w
		}
	}
	return true
}

// FieldCount reports the maximum row width seen so far in the current sheet
func (r *LegacyWorkbookReader) FieldCount() int {
	return r.fieldCount
}

// SheetName returns the name of the current sheet
func (r *LegacyWorkbookReader) SheetName() string {
	if r.sheet == nil {
		return ""
	}
	return r.sheet.Name
}

// ValueAt returns the cell value at the given column of the current row.
// Corrupt cells degrade to an empty value.
func (r *LegacyWorkbookReader) ValueAt(i int) (value any) {
	defer func() {
		if rec := recover(); rec != nil {
			value = ""
		}
	}()
	if r.sheet == nil {
		return ""
	}
	row := r.sheet.Row(r.rowIdx)
	if row == nil || i < row.FirstCol() || i >= row.LastCol() {
		return ""
	}
	return row.Col(i)
}

// Close releases the workbook
func (r *LegacyWorkbookReader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
