package fileloader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DelimitedReader is the flat delimited text reader: one row per non-blank
// line, comma splitting with quote awareness for the .csv variant, fixed tab
// or semicolon splitting for the .txt variant. Input is decoded from the
// single-byte Western legacy code page.
type DelimitedReader struct {
	closer     io.Closer
	csv        *csv.Reader
	name       string
	sheetDone  bool
	row        []string
	fieldCount int
}

// NewDelimitedReader opens a delimited text file as a TableReader
func NewDelimitedReader(filePath string) (*DelimitedReader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	r := newDelimitedReader(f, f, DetectFileType(filePath))
	r.name = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	return r, nil
}

// NewDelimitedReaderFromBytes opens in-memory delimited data as a TableReader
func NewDelimitedReaderFromBytes(data []byte, fileType FileType, name string) *DelimitedReader {
	r := newDelimitedReader(bytes.NewReader(data), nil, fileType)
	r.name = name
	return r
}

func newDelimitedReader(src io.Reader, closer io.Closer, fileType FileType) *DelimitedReader {
	decoded := bufio.NewReader(transform.NewReader(src, charmap.Windows1252.NewDecoder()))

	delimiter := ','
	if fileType == FileTypeTXT {
		delimiter = detectFixedDelimiter(decoded)
	}

	cr := csv.NewReader(decoded)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	return &DelimitedReader{closer: closer, csv: cr}
}

// detectFixedDelimiter picks tab or semicolon by inspecting the first line
func detectFixedDelimiter(br *bufio.Reader) rune {
	peeked, _ := br.Peek(4096)
	if nl := bytes.IndexByte(peeked, '\n'); nl >= 0 {
		peeked = peeked[:nl]
	}
	if bytes.IndexByte(peeked, '\t') >= 0 {
		return '\t'
	}
	return ';'
}

// NextSheet advances to the single table a flat file carries
func (r *DelimitedReader) NextSheet() bool {
	if r.sheetDone {
		return false
	}
	r.sheetDone = true
	return true
}

// NextRow reads the next non-blank line. Malformed lines are skipped rather
// than aborting the file; anything other than a parse error ends the file,
// since the underlying reader will keep returning it.
func (r *DelimitedReader) NextRow() bool {
	for {
		record, err := r.csv.Read()
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return false
		}
		// The csv reader reuses its record slice; keep a private copy.
		r.row = make([]string, len(record))
		copy(r.row, record)
		if len(r.row) > r.fieldCount {
			r.fieldCount = len(r.row)
		}
		return true
	}
}

// FieldCount reports the maximum row width seen so far
func (r *DelimitedReader) FieldCount() int {
	return r.fieldCount
}

// SheetName returns the table name, derived from the file name
func (r *DelimitedReader) SheetName() string {
	return r.name
}

// ValueAt returns the cell value at the given column of the current row
func (r *DelimitedReader) ValueAt(i int) any {
	if i < 0 || i >= len(r.row) {
		return nil
	}
	return r.row[i]
}

// Close releases the underlying file
func (r *DelimitedReader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
