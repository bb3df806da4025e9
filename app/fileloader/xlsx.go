package fileloader

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// WorkbookReader is the DOM spreadsheet reader. The whole workbook is loaded
// into memory, which is what makes merged-region resolution and cached
// formula results available; O(1) streaming is the container reader's job,
// not this one's.
//
// On each sheet the reader pre-scans all merged regions and builds a lookup
// from (row, column) to the region's top-left cell, so reads of any child
// cell inside a region are redirected to the representative value instead of
// surfacing silent blanks.
type WorkbookReader struct {
	file       *excelize.File
	sheets     []string
	sheetIdx   int
	rows       [][]string // formatted cell values of the current sheet
	raws       [][]string // raw cell values, for serial-number recovery
	merged     map[[2]int][2]int
	timeStyles map[int]bool
	rowIdx     int
	fieldCount int
}

// builtinTimeFormats are the stock number format IDs that render a serial
// number as a clock or duration
var builtinTimeFormats = map[int]bool{
	18: true, 19: true, 20: true, 21: true, 22: true,
	45: true, 46: true, 47: true,
}

// NewWorkbookReader opens a workbook file as a TableReader
func NewWorkbookReader(filePath string) (*WorkbookReader, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	return newWorkbookReader(f), nil
}

// NewWorkbookReaderFromBytes opens in-memory workbook data as a TableReader
func NewWorkbookReaderFromBytes(data []byte) (*WorkbookReader, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return newWorkbookReader(f), nil
}

func newWorkbookReader(f *excelize.File) *WorkbookReader {
	return &WorkbookReader{
		file:       f,
		sheets:     f.GetSheetList(),
		sheetIdx:   -1,
		timeStyles: make(map[int]bool),
	}
}

// NextSheet advances to the next sheet, loading its rows and merged regions.
// A sheet that fails to load comes through empty instead of aborting the
// workbook.
func (r *WorkbookReader) NextSheet() bool {
	r.sheetIdx++
	if r.sheetIdx >= len(r.sheets) {
		return false
	}

	sheet := r.sheets[r.sheetIdx]
	r.rowIdx = -1
	r.fieldCount = 0

	rows, err := r.file.GetRows(sheet)
	if err != nil {
		rows = nil
	}
	raws, err := r.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		raws = nil
	}
	r.rows = rows
	r.raws = raws

	r.merged = make(map[[2]int][2]int)
	if regions, err := r.file.GetMergeCells(sheet); err == nil {
		for _, region := range regions {
			startCol, startRow, err1 := excelize.CellNameToCoordinates(region.GetStartAxis())
			endCol, endRow, err2 := excelize.CellNameToCoordinates(region.GetEndAxis())
			if err1 != nil || err2 != nil {
				continue
			}
			for row := startRow; row <= endRow; row++ {
				for col := startCol; col <= endCol; col++ {
					if row == startRow && col == startCol {
						continue
					}
					r.merged[[2]int{row - 1, col - 1}] = [2]int{startRow - 1, startCol - 1}
				}
			}
		}
	}

	return true
}

// NextRow advances to the next row of the current sheet
func (r *WorkbookReader) NextRow() bool {
	if r.rowIdx+1 >= len(r.rows) {
		return false
	}
	r.rowIdx++
	if w := len(r.rows[r.rowIdx]); w > r.fieldCount {
		r.fieldCount = w
	}
	return true
}

// FieldCount reports the maximum row width seen so far in the current sheet
func (r *WorkbookReader) FieldCount() int {
	return r.fieldCount
}

// SheetName returns the name of the current sheet
func (r *WorkbookReader) SheetName() string {
	if r.sheetIdx < 0 || r.sheetIdx >= len(r.sheets) {
		return ""
	}
	return r.sheets[r.sheetIdx]
}

// ValueAt returns the cell value at the given column of the current row.
// Reads inside a merged region are redirected to the region's top-left cell.
// Any per-cell failure degrades to an empty value so one corrupt cell never
// aborts the sheet.
func (r *WorkbookReader) ValueAt(i int) (value any) {
	defer func() {
		if rec := recover(); rec != nil {
			value = ""
		}
	}()
	return r.cellValue(r.rowIdx, i, 0)
}

// cellValue resolves one cell, following at most one merged-region redirect
func (r *WorkbookReader) cellValue(row, col, depth int) any {
	if top, ok := r.merged[[2]int{row, col}]; ok && depth == 0 {
		return r.cellValue(top[0], top[1], depth+1)
	}

	formatted := cellAt(r.rows, row, col)
	raw := cellAt(r.raws, row, col)

	// A negative date/time-formatted serial (a formula result, typically)
	// renders as display overflow; reconstruct it from the raw day fraction
	// so the sign and the >24h magnitude survive.
	if raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil && f < 0 && r.isTimeFormatted(row, col) {
			return time.Duration(f * float64(24*time.Hour))
		}
	}

	return formatted
}

// isTimeFormatted reports whether the cell's number format renders serials
// as clock values. Style lookups are cached per style ID.
func (r *WorkbookReader) isTimeFormatted(row, col int) bool {
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return false
	}
	styleID, err := r.file.GetCellStyle(r.sheets[r.sheetIdx], axis)
	if err != nil {
		return false
	}
	if cached, ok := r.timeStyles[styleID]; ok {
		return cached
	}

	isTime := false
	if style, err := r.file.GetStyle(styleID); err == nil && style != nil {
		if builtinTimeFormats[style.NumFmt] {
			isTime = true
		} else if style.CustomNumFmt != nil {
			fmtStr := strings.ToLower(*style.CustomNumFmt)
			isTime = strings.Contains(fmtStr, ":") && (strings.Contains(fmtStr, "h") || strings.Contains(fmtStr, "s"))
		}
	}
	r.timeStyles[styleID] = isTime
	return isTime
}

// Close releases the workbook
func (r *WorkbookReader) Close() error {
	return r.file.Close()
}

// cellAt is a bounds-checked lookup into a row matrix
func cellAt(rows [][]string, row, col int) string {
	if row < 0 || row >= len(rows) {
		return ""
	}
	if col < 0 || col >= len(rows[row]) {
		return ""
	}
	return rows[row][col]
}
