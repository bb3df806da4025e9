package fileloader

// Package fileloader provides the format-specific readers that normalize the
// supported tabular sources (workbook DOM formats, the streamed open-document
// container, delimited text, the legacy fixed-record table) into the uniform
// sheet/row/cell stream the rest of the engine consumes. It also handles file
// type detection, transparent decompression, and directory batch discovery.

// FileType represents the type of data file being processed
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeXLSX
	FileTypeXLS
	FileTypeODS
	FileTypeCSV
	FileTypeTXT
	FileTypeDBF
)

// String returns the string representation of FileType
func (ft FileType) String() string {
	switch ft {
	case FileTypeXLSX:
		return "XLSX"
	case FileTypeXLS:
		return "XLS"
	case FileTypeODS:
		return "ODS"
	case FileTypeCSV:
		return "CSV"
	case FileTypeTXT:
		return "TXT"
	case FileTypeDBF:
		return "DBF"
	default:
		return "Unknown"
	}
}

// FileOptions carries per-file parsing options
type FileOptions struct {
	NoHeaderRow bool   // first row is data; synthetic headers are generated
	IsDirectory bool   // path is a directory to be batch-discovered
	FilePattern string // glob pattern for directory discovery
}

// DefaultFileOptions returns the default parsing options
func DefaultFileOptions() FileOptions {
	return FileOptions{}
}
