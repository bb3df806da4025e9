package export

import (
	"os"

	"tableforge/app/dbf"
	"tableforge/app/interfaces"
)

// dbfRowWriter serializes a ticket into the legacy binary table format
type dbfRowWriter struct {
	file   *os.File
	writer *dbf.Writer
}

// dbfField maps one schema column onto a native field descriptor. The format
// has no time type, so Time columns are stored as formatted Character.
// Numeric decimals are clamped to length-2 to satisfy the structural
// constraint before the codec validates it.
func dbfField(col *interfaces.DetectedColumn) dbf.Field {
	switch col.Type {
	case interfaces.TypeNumeric:
		length := col.Length
		if length < 10 {
			length = 10
		}
		decimals := col.Decimals
		if decimals > length-2 {
			decimals = length - 2
		}
		if decimals < 0 {
			decimals = 0
		}
		return dbf.Field{Name: col.Name, Type: dbf.TypeNumeric, Length: length, Decimals: decimals}

	case interfaces.TypeInteger:
		length := col.Length
		if length < 10 {
			length = 10
		}
		return dbf.Field{Name: col.Name, Type: dbf.TypeNumeric, Length: length, Decimals: 0}

	case interfaces.TypeDate:
		return dbf.Field{Name: col.Name, Type: dbf.TypeDate, Length: 8}

	case interfaces.TypeLogical:
		return dbf.Field{Name: col.Name, Type: dbf.TypeLogical, Length: 1}

	case interfaces.TypeTime:
		length := col.Length
		if length < 8 {
			length = 8
		}
		return dbf.Field{Name: col.Name, Type: dbf.TypeCharacter, Length: length}

	default:
		length := col.Length
		if length < 1 {
			length = 1
		}
		if length > interfaces.MaxCharacterLen {
			length = interfaces.MaxCharacterLen
		}
		return dbf.Field{Name: col.Name, Type: dbf.TypeCharacter, Length: length}
	}
}

func newDBFRowWriter(file *os.File, schema []*interfaces.DetectedColumn) (*dbfRowWriter, error) {
	fields := make([]dbf.Field, len(schema))
	for i, col := range schema {
		fields[i] = dbfField(col)
	}
	writer, err := dbf.NewWriter(file, fields)
	if err != nil {
		return nil, err
	}
	return &dbfRowWriter{file: file, writer: writer}, nil
}

// WriteHeader is a no-op: field descriptors were already written at open time
func (w *dbfRowWriter) WriteHeader([]string) error {
	return nil
}

func (w *dbfRowWriter) WriteRow(values []string) error {
	return w.writer.WriteRecord(values)
}

func (w *dbfRowWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
