package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tableforge/app/interfaces"
	"tableforge/app/sanitize"
	"tableforge/app/trace"
)

// Package export turns one forge ticket into one physical output file.
// Every cell is re-sanitized immediately before writing so the surgical
// trace reflects exactly what landed on disk, even if the ticket's stored
// matrix was assembled earlier under a different schema revision.

// rowWriter is the shared contract of the three physical writers
type rowWriter interface {
	WriteHeader(names []string) error
	WriteRow(values []string) error
	Close() error
}

// Engine executes tickets one at a time
type Engine struct {
	logger         *trace.Logger
	progress       interfaces.ProgressCallback
	suffixAttempts int
}

// NewEngine creates an export engine. progress may be nil.
func NewEngine(logger *trace.Logger, progress interfaces.ProgressCallback, suffixAttempts int) *Engine {
	if suffixAttempts < 1 {
		suffixAttempts = 100
	}
	return &Engine{logger: logger, progress: progress, suffixAttempts: suffixAttempts}
}

// Export writes one ticket and returns its terminal outcome. A panic inside
// the writers fails the ticket without taking down the run.
func (e *Engine) Export(ticket *interfaces.ForgeTicket) (outcome interfaces.Outcome) {
	outcome = interfaces.Outcome{TicketID: ticket.ID}

	defer func() {
		if r := recover(); r != nil {
			outcome.Status = interfaces.StatusFailed
			outcome.Err = fmt.Sprintf("export panicked: %v", r)
			e.logger.Logf(trace.LevelError, "ticket %s: %s", ticket.ID, outcome.Err)
		}
	}()

	path, file, err := e.resolveWritePath(ticket.OutputPath)
	if err != nil {
		outcome.Status = interfaces.StatusFailed
		outcome.Err = err.Error()
		e.logger.Logf(trace.LevelError, "ticket %s: %s", ticket.ID, outcome.Err)
		return outcome
	}
	outcome.Path = path

	writer, err := e.openWriter(file, ticket)
	if err != nil {
		file.Close()
		outcome.Status = interfaces.StatusFailed
		outcome.Err = err.Error()
		e.logger.Logf(trace.LevelError, "ticket %s: %s", ticket.ID, outcome.Err)
		return outcome
	}

	e.logger.Logf(trace.LevelSystem, "exporting ticket %s (%s) to %s, %d rows from %s",
		ticket.ID, ticket.Format, path, len(ticket.Rows), strings.Join(ticket.Sources, ", "))

	lossy, err := e.writeRows(writer, ticket)
	outcome.LossyCells = lossy

	if closeErr := writer.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// The partial file is left in place for inspection.
		outcome.Status = interfaces.StatusFailed
		outcome.Err = err.Error()
		e.logger.Logf(trace.LevelError, "ticket %s: %s", ticket.ID, outcome.Err)
		return outcome
	}

	if lossy > 0 {
		outcome.Status = interfaces.StatusSucceededWithWarnings
		e.logger.Logf(trace.LevelWarning, "ticket %s completed with %d lossy cells", ticket.ID, lossy)
	} else {
		outcome.Status = interfaces.StatusSucceeded
		e.logger.Logf(trace.LevelSystem, "ticket %s completed", ticket.ID)
	}
	return outcome
}

// resolveWritePath opens the output file, appending _1, _2, ... when the
// requested path cannot be opened for writing (held open elsewhere or
// otherwise refusing the create). Returns the path actually opened.
func (e *Engine) resolveWritePath(requested string) (string, *os.File, error) {
	dir := filepath.Dir(requested)
	ext := filepath.Ext(requested)
	base := strings.TrimSuffix(filepath.Base(requested), ext)

	candidate := requested
	for attempt := 0; attempt <= e.suffixAttempts; attempt++ {
		if attempt > 0 {
			candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, attempt, ext))
		}
		file, err := os.OpenFile(candidate, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err == nil {
			if attempt > 0 {
				e.logger.Logf(trace.LevelWarning, "output path %s unavailable, writing %s instead", requested, candidate)
			}
			return candidate, file, nil
		}
	}
	return "", nil, fmt.Errorf("no writable output path near %s after %d attempts", requested, e.suffixAttempts)
}

// openWriter selects the physical writer for the ticket's target format
func (e *Engine) openWriter(file *os.File, ticket *interfaces.ForgeTicket) (rowWriter, error) {
	switch ticket.Format {
	case interfaces.FormatXLSX:
		return newXLSXRowWriter(file, ticket.Schema)
	case interfaces.FormatCSV:
		return newCSVRowWriter(file), nil
	default:
		return newDBFRowWriter(file, ticket.Schema)
	}
}

// writeRows runs the authoritative sanitize pass over every cell, emits one
// trace entry per cell and streams the rows to the writer in matrix order
func (e *Engine) writeRows(writer rowWriter, ticket *interfaces.ForgeTicket) (int64, error) {
	names := make([]string, len(ticket.Schema))
	for i, col := range ticket.Schema {
		names[i] = col.Name
	}
	if err := writer.WriteHeader(names); err != nil {
		return 0, err
	}

	var lossy int64
	total := int64(len(ticket.Rows))
	values := make([]string, len(ticket.Schema))

	for rowIdx, row := range ticket.Rows {
		for colIdx, col := range ticket.Schema {
			var raw any
			if colIdx < len(row) {
				raw = row[colIdx]
			}
			result := sanitize.Sanitize(raw, col.Type)
			values[colIdx] = result.Value
			if result.Loss {
				lossy++
			}
			e.logger.Cell(trace.CellTrace{
				Row:     rowIdx,
				Col:     colIdx,
				Column:  col.Name,
				Type:    col.Type.String(),
				Raw:     raw,
				RawType: fmt.Sprintf("%T", raw),
				Output:  result.Value,
				Loss:    result.Loss,
			})
		}
		if err := writer.WriteRow(values); err != nil {
			return lossy, fmt.Errorf("failed to write row %d: %w", rowIdx, err)
		}
		if e.progress != nil && (rowIdx+1)%interfaces.ProgressUpdateInterval == 0 {
			e.progress("export", int64(rowIdx+1), total, ticket.ID)
		}
	}

	if e.progress != nil {
		e.progress("export", total, total, ticket.ID)
	}
	return lossy, nil
}
