package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"tableforge/app/cache"
	"tableforge/app/events"
	"tableforge/app/export"
	"tableforge/app/fileloader"
	"tableforge/app/inference"
	"tableforge/app/interfaces"
	"tableforge/app/sanitize"
	"tableforge/app/settings"
	"tableforge/app/trace"
)

// Package runner orchestrates the two long-running passes: analysis (read
// every queued file into record sets with inferred schemas) and export
// (process a ticket list strictly sequentially). Per-file and per-ticket
// failures are isolated; a bad input never halts the rest of the run.

// Runner drives analysis and export runs
type Runner struct {
	logger *trace.Logger
	bus    *events.Bus
	cache  *cache.Cache
	cfg    settings.Settings
	engine *export.Engine
}

// NewRunner wires a runner from its collaborators
func NewRunner(logger *trace.Logger, bus *events.Bus, cfg settings.Settings) *Runner {
	r := &Runner{
		logger: logger,
		bus:    bus,
		cache:  cache.NewCache(int64(cfg.CacheSizeLimitMB) * 1024 * 1024),
		cfg:    cfg,
	}
	r.engine = export.NewEngine(logger, r.publishProgress, cfg.PathSuffixAttempts)
	return r
}

// publishProgress forwards engine progress onto the event bus
func (r *Runner) publishProgress(stage string, current, total int64, message string) {
	r.bus.Publish(events.EventProgress, events.ProgressPayload{
		Stage:   stage,
		Current: current,
		Total:   total,
		Message: message,
	})
}

// Analyze expands the queued paths (directories become their discovered
// files) and reads each file into one record set per sheet, schema included.
// Unreadable files are logged and skipped.
func (r *Runner) Analyze(paths []string) []*interfaces.SourceRecordSet {
	return r.AnalyzeWithOptions(paths, fileloader.DefaultFileOptions())
}

// AnalyzeWithOptions is Analyze with per-file parsing options: a custom
// discovery pattern and headerless-source handling.
func (r *Runner) AnalyzeWithOptions(paths []string, opts fileloader.FileOptions) []*interfaces.SourceRecordSet {
	files := r.expandPaths(paths, opts.FilePattern)
	total := int64(len(files))

	var recordSets []*interfaces.SourceRecordSet
	for i, filePath := range files {
		r.publishProgress("analyze", int64(i), total, filePath)

		sets, err := r.analyzeFile(filePath, opts)
		if err != nil {
			r.logger.Logf(trace.LevelWarning, "skipping %s: %v", filePath, err)
			r.bus.Publish(events.EventLog, events.LogPayload{
				Level:   trace.LevelWarning.String(),
				Message: fmt.Sprintf("skipping %s: %v", filePath, err),
			})
			continue
		}
		recordSets = append(recordSets, sets...)
	}

	r.publishProgress("analyze", total, total, "")
	return recordSets
}

// expandPaths resolves directories into their contained source files
func (r *Runner) expandPaths(paths []string, pattern string) []string {
	var files []string
	for _, path := range paths {
		if !fileloader.IsDirectory(path) {
			files = append(files, path)
			continue
		}
		info, err := fileloader.DiscoverFiles(path, pattern, r.cfg.MaxDirectoryFiles)
		if err != nil {
			r.logger.Logf(trace.LevelWarning, "failed to scan directory %s: %v", path, err)
			continue
		}
		r.logger.Logf(trace.LevelSystem, "queued %d files (%d bytes) from %s", info.TotalFiles, info.TotalSize, path)
		files = append(files, info.Files...)
	}
	return files
}

// analyzeFile reads one physical file into record sets, one per sheet,
// consulting the analysis cache first. Headerless reads bypass the cache:
// entries are keyed on file identity alone and the two parses disagree on
// what the first row means.
func (r *Runner) analyzeFile(filePath string, opts fileloader.FileOptions) ([]*interfaces.SourceRecordSet, error) {
	key, err := cache.Key(filePath)
	if err != nil {
		return nil, err
	}
	if !opts.NoHeaderRow {
		if sets, ok := r.cache.Get(key); ok {
			r.logger.Logf(trace.LevelSystem, "analysis cache hit for %s", filePath)
			return sets, nil
		}
	}

	reader, err := fileloader.OpenTable(filePath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	if warning := fileloader.TakeDecompressionWarning(filePath); warning != "" {
		r.logger.Logf(trace.LevelWarning, "%s: %s", filePath, warning)
	}

	headerProvider, _ := reader.(fileloader.HeaderProvider)

	var sets []*interfaces.SourceRecordSet
	for reader.NextSheet() {
		set := r.readSheet(reader, headerProvider, filePath, opts)
		if set != nil {
			sets = append(sets, set)
		}
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("no usable rows found")
	}

	if !opts.NoHeaderRow {
		if info, statErr := os.Stat(filePath); statErr == nil {
			r.cache.Put(key, sets, info.ModTime(), info.Size())
		}
	}
	return sets, nil
}

// readSheet drains the reader's current sheet into one record set. The
// first non-empty row becomes the header unless the format names its own
// fields or the options declare the source headerless, in which case every
// row is data and synthetic headers are generated from the widest row.
// Sheets with no data rows yield nil.
func (r *Runner) readSheet(reader interfaces.TableReader, headerProvider fileloader.HeaderProvider, filePath string, opts fileloader.FileOptions) *interfaces.SourceRecordSet {
	var headers []string
	if headerProvider != nil {
		headers = headerProvider.Headers()
	}

	var rows []*interfaces.Row
	rowIndex := 0
	maxWidth := 0
	for reader.NextRow() {
		width := reader.FieldCount()
		cells := make([]any, width)
		empty := true
		for i := 0; i < width; i++ {
			cells[i] = reader.ValueAt(i)
			if cells[i] != nil {
				if s, ok := cells[i].(string); !ok || strings.TrimSpace(s) != "" {
					empty = false
				}
			}
		}
		if empty {
			continue
		}

		if headers == nil && !opts.NoHeaderRow {
			headers = make([]string, len(cells))
			for i, cell := range cells {
				headers[i] = sanitize.Sanitize(cell, interfaces.TypeCharacter).Value
			}
			continue
		}

		if width > maxWidth {
			maxWidth = width
		}
		rows = append(rows, &interfaces.Row{RowIndex: rowIndex, Cells: cells})
		rowIndex++
	}

	if len(rows) == 0 {
		return nil
	}
	if headers == nil {
		headers = make([]string, maxWidth)
	}
	headers = fileloader.NormalizeHeaders(headers)

	sampleLen := r.cfg.DebugSampleRows
	if sampleLen > len(rows) {
		sampleLen = len(rows)
	}

	return &interfaces.SourceRecordSet{
		ID:         uuid.NewString(),
		FilePath:   filePath,
		FileName:   filepath.Base(filePath),
		SheetName:  reader.SheetName(),
		Rows:       rows,
		Sample:     rows[:sampleLen],
		Schema:     inference.DetectSchema(headers, rows),
		Enabled:    true,
		OutputName: defaultOutputName(filePath, reader.SheetName()),
	}
}

// defaultOutputName derives the initial output name from the file base name,
// qualified by the sheet name when it carries information
func defaultOutputName(filePath, sheetName string) string {
	base := filepath.Base(filePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	sheet := strings.TrimSpace(sheetName)
	if sheet == "" || strings.EqualFold(sheet, base) || strings.EqualFold(sheet, "Sheet1") {
		return base
	}
	return base + "_" + sheet
}

// ExportRun processes the ticket list strictly sequentially, one ticket at a
// time, publishing status transitions. A failed ticket does not stop the
// tickets after it.
func (r *Runner) ExportRun(tickets []*interfaces.ForgeTicket) []interfaces.Outcome {
	for _, ticket := range tickets {
		r.publishStatus(ticket.ID, interfaces.StatusQueued, "", "")
	}

	outcomes := make([]interfaces.Outcome, 0, len(tickets))
	for _, ticket := range tickets {
		r.publishStatus(ticket.ID, interfaces.StatusProcessing, "", "")

		outcome := r.engine.Export(ticket)
		outcomes = append(outcomes, outcome)
		r.publishStatus(ticket.ID, outcome.Status, outcome.Path, outcome.Err)
	}
	return outcomes
}

// publishStatus emits one ticket lifecycle transition
func (r *Runner) publishStatus(ticketID string, status interfaces.ExportStatus, path, errMsg string) {
	r.bus.Publish(events.EventTicketStatus, events.TicketStatusPayload{
		TicketID: ticketID,
		Status:   status,
		Path:     path,
		Error:    errMsg,
	})
}

// Preview re-reads a completed output file through the matching reader and
// returns its first rows rendered as text, header included
func (r *Runner) Preview(filePath string) ([][]string, error) {
	reader, err := fileloader.OpenTable(filePath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	if !reader.NextSheet() {
		return nil, fmt.Errorf("no data in %s", filePath)
	}

	var preview [][]string
	if hp, ok := reader.(fileloader.HeaderProvider); ok {
		preview = append(preview, hp.Headers())
	}

	for len(preview) <= r.cfg.PreviewRows && reader.NextRow() {
		width := reader.FieldCount()
		row := make([]string, width)
		for i := 0; i < width; i++ {
			row[i] = sanitize.Sanitize(reader.ValueAt(i), interfaces.TypeCharacter).Value
		}
		preview = append(preview, row)
	}
	return preview, nil
}

// ValidateSample runs the sanitizer over a record set's debug sample against
// its current schema, returning one result per cell of each sample row. The
// interactive layer uses this to show what an export would do before one is
// queued.
func (r *Runner) ValidateSample(set *interfaces.SourceRecordSet) [][]sanitize.Result {
	results := make([][]sanitize.Result, len(set.Sample))
	for rowIdx, row := range set.Sample {
		rowResults := make([]sanitize.Result, len(set.Schema))
		for colIdx, col := range set.Schema {
			var raw any
			if colIdx < len(row.Cells) {
				raw = row.Cells[colIdx]
			}
			rowResults[colIdx] = sanitize.Sanitize(raw, col.Type)
		}
		results[rowIdx] = rowResults
	}
	return results
}

// CacheStats reports the analysis cache counters for diagnostics
func (r *Runner) CacheStats() string {
	hits, misses, entries, bytes := r.cache.Stats()
	return fmt.Sprintf("cache: %d hits, %d misses, %d entries, %d bytes", hits, misses, entries, bytes)
}
