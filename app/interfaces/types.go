package interfaces

// Package interfaces holds the shared types used across the engine packages.
// Keeping them here avoids import cycles between the readers, the inference
// engine, the ticket builder and the export engine.

// ColumnType is the closed set of primitive column types a target table
// can carry. The zero value is Character, the universal fallback.
type ColumnType int

const (
	TypeCharacter ColumnType = iota
	TypeNumeric
	TypeInteger
	TypeDate
	TypeLogical
	TypeTime
)

// String returns the string representation of ColumnType
func (t ColumnType) String() string {
	switch t {
	case TypeNumeric:
		return "Numeric"
	case TypeInteger:
		return "Integer"
	case TypeDate:
		return "Date"
	case TypeLogical:
		return "Logical"
	case TypeTime:
		return "Time"
	default:
		return "Character"
	}
}

// TargetFormat identifies the physical output format of an export ticket.
type TargetFormat int

const (
	FormatDBF TargetFormat = iota
	FormatXLSX
	FormatCSV
)

// String returns the string representation of TargetFormat
func (f TargetFormat) String() string {
	switch f {
	case FormatXLSX:
		return "XLSX"
	case FormatCSV:
		return "CSV"
	default:
		return "DBF"
	}
}

// Extension returns the file extension for the format, including the dot.
func (f TargetFormat) Extension() string {
	switch f {
	case FormatXLSX:
		return ".xlsx"
	case FormatCSV:
		return ".csv"
	default:
		return ".dbf"
	}
}

// DetectedColumn is one schema slot: the inferred (and later user-edited)
// shape of a single source column.
type DetectedColumn struct {
	Name     string     // sanitized identifier name
	Type     ColumnType // suggested primitive type
	Length   int        // target length in characters
	Decimals int        // target decimal count (Numeric only)
	Ghost    bool       // no valid samples observed across the stride sample
	Active   bool       // included in export; ghost columns start inactive
}

// Clone returns a copy of the column so user edits never alias the
// inference output.
func (c *DetectedColumn) Clone() *DetectedColumn {
	cp := *c
	return &cp
}

// Row is one source row. Cells are loosely typed: readers surface string,
// float64, bool, time.Time or time.Duration depending on what the source
// format can express.
type Row struct {
	RowIndex int // 0-based index of this row in its source sheet
	Cells    []any
}

// TableReader is the uniform capability set every format-specific reader
// exposes. A reader is a stateful forward iterator over one physical file:
// advance sheets, advance rows, random-access cells of the current row.
type TableReader interface {
	// NextSheet advances to the next sheet or table. Returns false when the
	// source is exhausted. Must be called once before the first NextRow.
	NextSheet() bool
	// NextRow advances to the next row of the current sheet.
	NextRow() bool
	// FieldCount reports the maximum column width seen so far in the
	// current sheet.
	FieldCount() int
	// SheetName returns the name of the current sheet.
	SheetName() string
	// ValueAt returns the cell value at the given column index of the
	// current row. Indexes beyond the row's width return nil.
	ValueAt(i int) any
	// Close releases the underlying file resources.
	Close() error
}

// SourceRecordSet is one logical table read from one file+sheet, plus the
// schema inferred for it. Immutable after analysis except for user-driven
// schema edits.
type SourceRecordSet struct {
	ID         string
	FilePath   string
	FileName   string
	SheetName  string
	Rows       []*Row
	Sample     []*Row // bounded debug sample for interactive validation
	Schema     []*DetectedColumn
	Enabled    bool
	OutputName string // user-editable output base name
}

// ActiveColumns returns the indices of the columns currently enabled for
// export, in schema order.
func (s *SourceRecordSet) ActiveColumns() []int {
	var active []int
	for i, col := range s.Schema {
		if col.Active {
			active = append(active, i)
		}
	}
	return active
}

// ForgeTicket is one fully resolved unit of export work: target path,
// export-safe schema, sanitized row matrix and target format.
type ForgeTicket struct {
	ID         string
	OutputPath string // requested path; the engine may suffix it on contention
	Format     TargetFormat
	Schema     []*DetectedColumn // names unique, uppercase, <= 10 characters
	Rows       [][]string        // sanitized matrix, source order then row order
	Sources    []string          // source file names, for logging
}

// ExportStatus is the lifecycle state of one ticket.
type ExportStatus int

const (
	StatusQueued ExportStatus = iota
	StatusProcessing
	StatusSucceeded
	StatusSucceededWithWarnings
	StatusFailed
)

// String returns the string representation of ExportStatus
func (s ExportStatus) String() string {
	switch s {
	case StatusProcessing:
		return "processing"
	case StatusSucceeded:
		return "succeeded"
	case StatusSucceededWithWarnings:
		return "succeeded_with_warnings"
	case StatusFailed:
		return "failed"
	default:
		return "queued"
	}
}

// Outcome is the terminal status of one ticket.
type Outcome struct {
	TicketID   string
	Status     ExportStatus
	Path       string // resolved physical path actually written
	LossyCells int64
	Err        string // captured error message when Status is StatusFailed
}

// ProgressCallback provides real-time feedback during analysis and export
type ProgressCallback func(stage string, current, total int64, message string)

const (
	// ProgressUpdateInterval controls how often row-loop progress is reported
	ProgressUpdateInterval = 5000

	// DebugSampleRows bounds the interactive validation sample per record set
	DebugSampleRows = 50

	// PreviewRows bounds the post-export output preview
	PreviewRows = 20

	// MaxFieldNameLen is the identifier budget of the legacy binary target
	MaxFieldNameLen = 10

	// MaxCharacterLen is the widest Character column the binary target allows
	MaxCharacterLen = 254

	// MaxRepeatedCells caps horizontal repetition expansion so a malformed
	// repeat count cannot exhaust memory
	MaxRepeatedCells = 4096
)
