package fileloader

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tableforge/app/dbf"
)

// LegacyTableReader surfaces a pre-indexed fixed-record binary table. Fields
// arrive already named and typed by the format itself, so the reader exposes
// the descriptor names through Headers and every record is data.
type LegacyTableReader struct {
	closer     io.Closer
	table      *dbf.Reader
	name       string
	sheetDone  bool
	row        []any
	fieldCount int
}

// NewLegacyTableReader opens a fixed-record table file as a TableReader
func NewLegacyTableReader(filePath string) (*LegacyTableReader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	table, err := dbf.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &LegacyTableReader{
		closer: f,
		table:  table,
		name:   strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath)),
	}, nil
}

// NewLegacyTableReaderFromBytes opens in-memory table data as a TableReader
func NewLegacyTableReaderFromBytes(data []byte, name string) (*LegacyTableReader, error) {
	table, err := dbf.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &LegacyTableReader{table: table, name: name}, nil
}

// Headers returns the field names the format itself declares
func (r *LegacyTableReader) Headers() []string {
	fields := r.table.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// NextSheet advances to the single table the format carries
func (r *LegacyTableReader) NextSheet() bool {
	if r.sheetDone {
		return false
	}
	r.sheetDone = true
	r.fieldCount = len(r.table.Fields())
	return true
}

// NextRow reads the next non-deleted record
func (r *LegacyTableReader) NextRow() bool {
	record, err := r.table.Read()
	if err != nil {
		return false
	}
	r.row = record
	return true
}

// FieldCount reports the field count the table declares
func (r *LegacyTableReader) FieldCount() int {
	return r.fieldCount
}

// SheetName returns the table name, derived from the file name
func (r *LegacyTableReader) SheetName() string {
	return r.name
}

// ValueAt returns the field value at the given index of the current record
func (r *LegacyTableReader) ValueAt(i int) any {
	if i < 0 || i >= len(r.row) {
		return nil
	}
	return r.row[i]
}

// Close releases the underlying file
func (r *LegacyTableReader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
