package export

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"tableforge/app/interfaces"
)

// xlsxRowWriter serializes a ticket into a single-sheet workbook via the
// stream writer, so large tickets never materialize a full worksheet DOM.
type xlsxRowWriter struct {
	file    *os.File
	book    *excelize.File
	stream  *excelize.StreamWriter
	schema  []*interfaces.DetectedColumn
	rowNum  int
	dateSty int
	timeSty int
}

const sheetName = "Sheet1"

func newXLSXRowWriter(file *os.File, schema []*interfaces.DetectedColumn) (*xlsxRowWriter, error) {
	book := excelize.NewFile()
	stream, err := book.NewStreamWriter(sheetName)
	if err != nil {
		book.Close()
		return nil, err
	}

	dateSty, err := book.NewStyle(&excelize.Style{CustomNumFmt: stringPtr("yyyy-mm-dd")})
	if err != nil {
		book.Close()
		return nil, err
	}
	timeSty, err := book.NewStyle(&excelize.Style{CustomNumFmt: stringPtr("[h]:mm:ss")})
	if err != nil {
		book.Close()
		return nil, err
	}

	return &xlsxRowWriter{
		file:    file,
		book:    book,
		stream:  stream,
		schema:  schema,
		dateSty: dateSty,
		timeSty: timeSty,
	}, nil
}

func stringPtr(s string) *string {
	return &s
}

func (w *xlsxRowWriter) WriteHeader(names []string) error {
	cells := make([]any, len(names))
	for i, name := range names {
		cells[i] = name
	}
	return w.writeCells(cells)
}

// WriteRow writes one sanitized row, choosing native cell values per column
// type: parsed dates with a date display style, durations as fractional-day
// numbers with a duration style, numerics as numbers when they parse and raw
// text otherwise so nothing silently disappears from the visual layer.
func (w *xlsxRowWriter) WriteRow(values []string) error {
	cells := make([]any, len(values))
	for i, v := range values {
		var colType interfaces.ColumnType
		if i < len(w.schema) {
			colType = w.schema[i].Type
		}

		switch colType {
		case interfaces.TypeDate:
			if t, err := time.Parse("2006-01-02", v); err == nil {
				cells[i] = excelize.Cell{StyleID: w.dateSty, Value: t}
				continue
			}
			cells[i] = v

		case interfaces.TypeTime:
			if f, ok := clockToDayFraction(v); ok {
				cells[i] = excelize.Cell{StyleID: w.timeSty, Value: f}
				continue
			}
			cells[i] = v

		case interfaces.TypeNumeric, interfaces.TypeInteger:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				cells[i] = f
				continue
			}
			cells[i] = v

		default:
			cells[i] = v
		}
	}
	return w.writeCells(cells)
}

func (w *xlsxRowWriter) writeCells(cells []any) error {
	w.rowNum++
	cell, err := excelize.CoordinatesToCellName(1, w.rowNum)
	if err != nil {
		return err
	}
	return w.stream.SetRow(cell, cells)
}

// clockToDayFraction converts [sign]H:MM[:SS] into a fractional-day value
func clockToDayFraction(v string) (float64, bool) {
	s := strings.TrimSpace(v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimLeft(s, "+-")

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	var seconds int64
	for _, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, false
		}
		seconds = seconds*60 + n
	}
	if len(parts) == 2 {
		seconds *= 60
	}
	f := float64(seconds) / 86400
	if neg {
		f = -f
	}
	return f, true
}

func (w *xlsxRowWriter) Close() error {
	defer w.book.Close()
	if err := w.stream.Flush(); err != nil {
		w.file.Close()
		return err
	}
	if _, err := w.book.WriteTo(w.file); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
