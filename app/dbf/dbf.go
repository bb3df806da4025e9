package dbf

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// Package dbf implements the fixed-record xBase table layout: a 32-byte file
// header, one 32-byte descriptor per field, then fixed-width records. Text is
// carried in the Western single-byte legacy code page on both the read and the
// write side.

// Field types understood by this codec
const (
	TypeCharacter = 'C'
	TypeNumeric   = 'N'
	TypeDate      = 'D'
	TypeLogical   = 'L'
)

const (
	headerSize      = 32
	descriptorSize  = 32
	descriptorTerm  = 0x0D
	eofMarker       = 0x1A
	deletedFlag     = '*'
	versionByte     = 0x03 // dBASE III without memo
	maxFieldNameLen = 10
	maxCharacterLen = 254
)

// Field is one column descriptor
type Field struct {
	Name     string // uppercase, unique, at most 10 characters
	Type     byte   // C, N, D or L
	Length   int
	Decimals int
}

// validate checks the structural constraints the format imposes
func (f Field) validate() error {
	if f.Name == "" || len(f.Name) > maxFieldNameLen {
		return fmt.Errorf("field name %q must be 1-%d characters", f.Name, maxFieldNameLen)
	}
	switch f.Type {
	case TypeCharacter:
		if f.Length < 1 || f.Length > maxCharacterLen {
			return fmt.Errorf("field %s: character length %d out of range", f.Name, f.Length)
		}
	case TypeNumeric:
		if f.Length < 1 {
			return fmt.Errorf("field %s: numeric length %d out of range", f.Name, f.Length)
		}
		if f.Decimals > 0 && f.Decimals > f.Length-2 {
			return fmt.Errorf("field %s: %d decimals do not fit in length %d", f.Name, f.Decimals, f.Length)
		}
	case TypeDate:
		if f.Length != 8 {
			return fmt.Errorf("field %s: date length must be 8", f.Name)
		}
	case TypeLogical:
		if f.Length != 1 {
			return fmt.Errorf("field %s: logical length must be 1", f.Name)
		}
	default:
		return fmt.Errorf("field %s: unsupported type %q", f.Name, f.Type)
	}
	return nil
}

// Writer serializes records into an xBase table. The record count is
// backpatched into the header on Close, so the destination must be seekable.
type Writer struct {
	w          io.WriteSeeker
	fields     []Field
	recordSize int
	count      uint32
	encoder    *charmap.Charmap
	closed     bool
}

// NewWriter writes the header and field descriptors and returns a Writer
// ready to accept records.
func NewWriter(w io.WriteSeeker, fields []Field) (*Writer, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("at least one field is required")
	}

	recordSize := 1 // deletion flag
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if err := f.validate(); err != nil {
			return nil, err
		}
		name := strings.ToUpper(f.Name)
		if seen[name] {
			return nil, fmt.Errorf("duplicate field name %q", name)
		}
		seen[name] = true
		recordSize += f.Length
	}

	wr := &Writer{
		w:          w,
		fields:     fields,
		recordSize: recordSize,
		encoder:    charmap.Windows1252,
	}
	if err := wr.writeHeader(0); err != nil {
		return nil, err
	}
	return wr, nil
}

// writeHeader emits the 32-byte header, the descriptors and the terminator
func (w *Writer) writeHeader(count uint32) error {
	now := time.Now()
	head := make([]byte, headerSize)
	head[0] = versionByte
	head[1] = byte(now.Year() - 1900)
	head[2] = byte(now.Month())
	head[3] = byte(now.Day())
	binary.LittleEndian.PutUint32(head[4:8], count)
	binary.LittleEndian.PutUint16(head[8:10], uint16(headerSize+descriptorSize*len(w.fields)+1))
	binary.LittleEndian.PutUint16(head[10:12], uint16(w.recordSize))
	if _, err := w.w.Write(head); err != nil {
		return err
	}

	for _, f := range w.fields {
		desc := make([]byte, descriptorSize)
		copy(desc[0:11], strings.ToUpper(f.Name))
		desc[11] = f.Type
		desc[16] = byte(f.Length)
		desc[17] = byte(f.Decimals)
		if _, err := w.w.Write(desc); err != nil {
			return err
		}
	}

	_, err := w.w.Write([]byte{descriptorTerm})
	return err
}

// WriteRecord appends one record. Values are the sanitized textual forms:
// numerics in canonical notation, dates as yyyy-MM-dd, logicals as T/F.
// A numeric value too wide for its field is masked with asterisks rather
// than failing the record: batch completion is worth more than one cell.
func (w *Writer) WriteRecord(values []string) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	record := make([]byte, 0, w.recordSize)
	record = append(record, ' ')

	for i, f := range w.fields {
		var v string
		if i < len(values) {
			v = values[i]
		}
		record = append(record, w.encodeField(f, v)...)
	}

	if _, err := w.w.Write(record); err != nil {
		return err
	}
	w.count++
	return nil
}

// encodeField renders one value into its fixed-width slot
func (w *Writer) encodeField(f Field, v string) []byte {
	switch f.Type {
	case TypeCharacter:
		encoded, err := w.encoder.NewEncoder().String(v)
		if err != nil {
			encoded = v
		}
		if len(encoded) > f.Length {
			encoded = encoded[:f.Length]
		}
		return padRight([]byte(encoded), f.Length)

	case TypeNumeric:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fill(' ', f.Length)
		}
		s := strconv.FormatFloat(parsed, 'f', f.Decimals, 64)
		if len(s) > f.Length {
			// Out-of-range value: mask instead of aborting the batch.
			return fill('*', f.Length)
		}
		return padLeft([]byte(s), f.Length)

	case TypeDate:
		s := strings.ReplaceAll(v, "-", "")
		if len(s) != 8 {
			return fill(' ', 8)
		}
		return []byte(s)

	case TypeLogical:
		if v == "T" {
			return []byte{'T'}
		}
		return []byte{'F'}
	}
	return fill(' ', f.Length)
}

// Close writes the end-of-file marker and backpatches the record count
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if _, err := w.w.Write([]byte{eofMarker}); err != nil {
		return err
	}
	if _, err := w.w.Seek(4, io.SeekStart); err != nil {
		return err
	}
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], w.count)
	_, err := w.w.Write(count[:])
	return err
}

// Reader iterates the records of an existing xBase table. Fields arrive
// already named and typed by the format itself.
type Reader struct {
	r           io.Reader
	fields      []Field
	recordCount int
	recordSize  int
	read        int
	decoder     *charmap.Charmap
}

// NewReader parses the header and field descriptors
func NewReader(r io.Reader) (*Reader, error) {
	head := make([]byte, headerSize)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("failed to read table header: %w", err)
	}

	recordCount := int(binary.LittleEndian.Uint32(head[4:8]))
	headerLen := int(binary.LittleEndian.Uint16(head[8:10]))
	recordSize := int(binary.LittleEndian.Uint16(head[10:12]))

	fieldCount := (headerLen - headerSize - 1) / descriptorSize
	if fieldCount < 1 {
		return nil, fmt.Errorf("table declares no fields")
	}

	fields := make([]Field, 0, fieldCount)
	for i := 0; i < fieldCount; i++ {
		desc := make([]byte, descriptorSize)
		if _, err := io.ReadFull(r, desc); err != nil {
			return nil, fmt.Errorf("failed to read field descriptor %d: %w", i, err)
		}
		name := strings.TrimRight(string(desc[0:11]), "\x00")
		fields = append(fields, Field{
			Name:     name,
			Type:     desc[11],
			Length:   int(desc[16]),
			Decimals: int(desc[17]),
		})
	}

	// Consume the descriptor terminator and anything else before the data.
	remaining := headerLen - headerSize - descriptorSize*fieldCount
	if remaining > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(remaining)); err != nil {
			return nil, err
		}
	}

	return &Reader{
		r:           r,
		fields:      fields,
		recordCount: recordCount,
		recordSize:  recordSize,
		decoder:     charmap.Windows1252,
	}, nil
}

// Fields returns the table's field descriptors
func (r *Reader) Fields() []Field {
	return r.fields
}

// RecordCount returns the record count declared in the header
func (r *Reader) RecordCount() int {
	return r.recordCount
}

// Read returns the next non-deleted record as loosely typed values:
// Character as trimmed string, Numeric as float64 (or the raw text when it
// does not parse), Date as time.Time, Logical as bool. io.EOF ends the
// iteration.
func (r *Reader) Read() ([]any, error) {
	buf := make([]byte, r.recordSize)
	for {
		if r.read >= r.recordCount {
			return nil, io.EOF
		}
		if _, err := io.ReadFull(r.r, buf); err != nil {
			return nil, io.EOF
		}
		r.read++
		if buf[0] != deletedFlag {
			break
		}
	}

	values := make([]any, len(r.fields))
	offset := 1
	for i, f := range r.fields {
		raw := buf[offset : offset+f.Length]
		offset += f.Length
		values[i] = r.decodeField(f, raw)
	}
	return values, nil
}

// decodeField converts one fixed-width slot into a loosely typed value
func (r *Reader) decodeField(f Field, raw []byte) any {
	switch f.Type {
	case TypeNumeric:
		s := strings.TrimSpace(string(raw))
		if s == "" {
			return nil
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
		return s

	case TypeDate:
		s := strings.TrimSpace(string(raw))
		if s == "" {
			return nil
		}
		if t, err := time.Parse("20060102", s); err == nil {
			return t
		}
		return s

	case TypeLogical:
		switch raw[0] {
		case 'T', 't', 'Y', 'y':
			return true
		case 'F', 'f', 'N', 'n':
			return false
		}
		return nil

	default:
		decoded, err := r.decoder.NewDecoder().Bytes(raw)
		if err != nil {
			decoded = raw
		}
		return strings.TrimRight(string(decoded), " \x00")
	}
}

func padRight(b []byte, n int) []byte {
	for len(b) < n {
		b = append(b, ' ')
	}
	return b
}

func padLeft(b []byte, n int) []byte {
	out := fill(' ', n)
	copy(out[n-len(b):], b)
	return out
}

func fill(c byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = c
	}
	return out
}
