package export

import (
	"encoding/csv"
	"os"
)

// csvRowWriter serializes a ticket into RFC-4180 comma-separated text,
// UTF-8 encoded with a header row
type csvRowWriter struct {
	file   *os.File
	writer *csv.Writer
}

func newCSVRowWriter(file *os.File) *csvRowWriter {
	return &csvRowWriter{file: file, writer: csv.NewWriter(file)}
}

func (w *csvRowWriter) WriteHeader(names []string) error {
	return w.writer.Write(names)
}

func (w *csvRowWriter) WriteRow(values []string) error {
	return w.writer.Write(values)
}

func (w *csvRowWriter) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
