package fileloader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tableforge/app/interfaces"
)

// ContainerReader is the streaming open-document reader. The source is an
// archive whose single data-description entry is parsed with a forward-only
// tokenizer: nothing is materialized beyond the current row, so memory use is
// O(1) in file size.
//
// The format compresses two ways and both must be expanded at read time:
// horizontal repetition (one cell element implies N identical adjacent cells)
// and vertical spans (one cell element repeats its value into the next M rows
// at the same column position). Vertical spans live in a column-indexed
// buffer that is replayed before consuming physical cell elements and cleared
// on every sheet boundary.
type ContainerReader struct {
	archive io.Closer
	content io.ReadCloser
	dec     *xml.Decoder

	sheetName     string
	inSheet       bool
	done          bool
	row           []any
	fieldCount    int
	spans         map[int]*spanEntry
	pendingRepeat int
}

// spanEntry buffers one vertical span: the value and how many more rows it
// still occupies at its column position
type spanEntry struct {
	value     any
	remaining int
}

// contentEntryName is the archive entry holding the table data
const contentEntryName = "content.xml"

// maxRowRepeat caps vertical row repetition the same way MaxRepeatedCells
// caps horizontal expansion
const maxRowRepeat = 65536

// isoDurationPattern matches the ISO-8601 durations the format uses for
// time-typed cells
var isoDurationPattern = regexp.MustCompile(`^(-)?P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:([0-9.]+)S)?$`)

// NewContainerReader opens an open-document file as a TableReader
func NewContainerReader(filePath string) (*ContainerReader, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open container: %w", err)
	}
	r, err := newContainerReader(&zr.Reader, zr)
	if err != nil {
		zr.Close()
		return nil, err
	}
	return r, nil
}

// NewContainerReaderFromBytes opens in-memory container data as a TableReader
func NewContainerReaderFromBytes(data []byte) (*ContainerReader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open container: %w", err)
	}
	return newContainerReader(zr, nil)
}

func newContainerReader(zr *zip.Reader, closer io.Closer) (*ContainerReader, error) {
	var entry *zip.File
	for _, f := range zr.File {
		if f.Name == contentEntryName {
			entry = f
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("container has no %s entry", contentEntryName)
	}

	content, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", contentEntryName, err)
	}

	return &ContainerReader{
		archive: closer,
		content: content,
		dec:     xml.NewDecoder(content),
		spans:   make(map[int]*spanEntry),
	}, nil
}

// NextSheet scans forward to the next table element. The span buffer never
// survives a sheet boundary.
func (r *ContainerReader) NextSheet() bool {
	if r.done {
		return false
	}
	for {
		tok, err := r.dec.Token()
		if err != nil {
			r.done = true
			return false
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "table" {
			continue
		}

		r.sheetName = attrValue(se, "name")
		r.spans = make(map[int]*spanEntry)
		r.fieldCount = 0
		r.pendingRepeat = 0
		r.inSheet = true
		return true
	}
}

// NextRow assembles the next logical row, replaying any pending row
// repetition first.
func (r *ContainerReader) NextRow() bool {
	if r.done || !r.inSheet {
		return false
	}
	if r.pendingRepeat > 0 {
		r.pendingRepeat--
		return true
	}

	for {
		tok, err := r.dec.Token()
		if err != nil {
			r.done = true
			return false
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "table-row" {
				continue
			}
			repeat := intAttr(t, "number-rows-repeated", 1)
			row, err := r.parseRow()
			if err != nil {
				r.done = true
				return false
			}
			// An all-empty row carries no data; skipping it also defuses the
			// huge trailing repeat counts the format pads sheets with.
			if rowIsEmpty(row) {
				continue
			}
			r.row = row
			if len(row) > r.fieldCount {
				r.fieldCount = len(row)
			}
			if repeat > 1 {
				if repeat > maxRowRepeat {
					repeat = maxRowRepeat
				}
				r.pendingRepeat = repeat - 1
			}
			return true

		case xml.EndElement:
			if t.Name.Local == "table" {
				r.inSheet = false
				return false
			}
		}
	}
}

// parseRow consumes one table-row element, expanding horizontal repetition
// and resolving the vertical span buffer position by position.
func (r *ContainerReader) parseRow() ([]any, error) {
	var cells []any
	colPos := 0

	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "table-cell" && t.Name.Local != "covered-table-cell" {
				if err := r.dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}

			repeat := intAttr(t, "number-columns-repeated", 1)
			if repeat > interfaces.MaxRepeatedCells {
				repeat = interfaces.MaxRepeatedCells
			}
			rowsSpanned := intAttr(t, "number-rows-spanned", 1)

			value, err := r.parseCellValue(t)
			if err != nil {
				return nil, err
			}

			for k := 0; k < repeat; k++ {
				if span, live := r.spans[colPos]; live {
					// A live span owns this position; the physical element
					// here is a covered placeholder.
					cells = append(cells, span.value)
					span.remaining--
					if span.remaining <= 0 {
						delete(r.spans, colPos)
					}
				} else {
					cells = append(cells, value)
					if rowsSpanned > 1 {
						r.spans[colPos] = &spanEntry{value: value, remaining: rowsSpanned - 1}
					}
				}
				colPos++
			}

		case xml.EndElement:
			if t.Name.Local == "table-row" {
				return trimTrailingEmpty(cells), nil
			}
		}
	}
}

// parseCellValue extracts the typed value of one cell element and consumes
// the element's subtree. Type-annotated attributes win; the concatenated
// inline text nodes are the fallback.
func (r *ContainerReader) parseCellValue(se xml.StartElement) (any, error) {
	valueType := attrValue(se, "value-type")

	var text strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			text.Write(t)
		}
	}

	switch valueType {
	case "float", "currency", "percentage":
		if f, err := strconv.ParseFloat(attrValue(se, "value"), 64); err == nil {
			return f, nil
		}
	case "date":
		if t, ok := parseContainerDate(attrValue(se, "date-value")); ok {
			return t, nil
		}
	case "time":
		if d, ok := parseISODuration(attrValue(se, "time-value")); ok {
			return d, nil
		}
	case "boolean":
		return attrValue(se, "boolean-value") == "true", nil
	}

	return text.String(), nil
}

// FieldCount reports the maximum row width seen so far in the current sheet
func (r *ContainerReader) FieldCount() int {
	return r.fieldCount
}

// SheetName returns the name of the current sheet
func (r *ContainerReader) SheetName() string {
	return r.sheetName
}

// ValueAt returns the cell value at the given column of the current row
func (r *ContainerReader) ValueAt(i int) any {
	if i < 0 || i >= len(r.row) {
		return nil
	}
	return r.row[i]
}

// Close releases the archive
func (r *ContainerReader) Close() error {
	if r.content != nil {
		r.content.Close()
	}
	if r.archive != nil {
		return r.archive.Close()
	}
	return nil
}

// attrValue returns the named attribute, matching on the local name so the
// namespace prefixes the format scatters around do not matter
func attrValue(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// intAttr returns the named attribute as an int with a default
func intAttr(se xml.StartElement, local string, def int) int {
	s := attrValue(se, local)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// parseContainerDate parses a date-value attribute, stripping any trailing
// timezone marker first
func parseContainerDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	// Strip Z or a +hh:mm / -hh:mm offset after the time part.
	if idx := strings.IndexAny(s, "Zz"); idx > 0 {
		s = s[:idx]
	} else if tIdx := strings.Index(s, "T"); tIdx > 0 {
		rest := s[tIdx:]
		if off := strings.IndexAny(rest, "+-"); off > 0 {
			s = s[:tIdx+off]
		}
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseISODuration converts an ISO-8601 duration into a time.Duration
func parseISODuration(s string) (time.Duration, bool) {
	m := isoDurationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	days, _ := strconv.Atoi(zeroIfEmpty(m[2]))
	hours, _ := strconv.Atoi(zeroIfEmpty(m[3]))
	minutes, _ := strconv.Atoi(zeroIfEmpty(m[4]))
	seconds, _ := strconv.ParseFloat(zeroIfEmpty(m[5]), 64)

	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	if m[1] == "-" {
		d = -d
	}
	return d, true
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// cellIsBlank reports whether one cell is nil or blank text
func cellIsBlank(c any) bool {
	if c == nil {
		return true
	}
	if s, ok := c.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// rowIsEmpty reports whether every cell of the row is nil or blank text
func rowIsEmpty(row []any) bool {
	for _, c := range row {
		if !cellIsBlank(c) {
			return false
		}
	}
	return true
}

// trimTrailingEmpty drops the trailing run of empty cells a repeated filler
// element expands into
func trimTrailingEmpty(row []any) []any {
	end := len(row)
	for end > 0 && cellIsBlank(row[end-1]) {
		end--
	}
	return row[:end]
}
