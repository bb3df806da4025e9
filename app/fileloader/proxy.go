package fileloader

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"tableforge/app/interfaces"
)

// Format-agnostic dispatch. OpenTable selects the reader variant once, at
// open time, keyed on the detected file type; compressed sources are
// decompressed transparently first.

// HeaderProvider is implemented by readers whose format names its fields
// itself; for everything else the first non-blank row is the header.
type HeaderProvider interface {
	Headers() []string
}

// Decompression warnings are stashed per path so the analysis worker can
// log them after the reader is already open.
var (
	decompressionWarningsMu sync.Mutex
	decompressionWarnings   = make(map[string]string)
)

// TakeDecompressionWarning retrieves and clears any decompression warning
// recorded for a file
func TakeDecompressionWarning(filePath string) string {
	decompressionWarningsMu.Lock()
	defer decompressionWarningsMu.Unlock()
	warning := decompressionWarnings[filePath]
	delete(decompressionWarnings, filePath)
	return warning
}

func setDecompressionWarning(filePath, warning string) {
	decompressionWarningsMu.Lock()
	defer decompressionWarningsMu.Unlock()
	decompressionWarnings[filePath] = warning
}

// OpenTable opens a source file as a TableReader, dispatching on the
// detected file type
func OpenTable(filePath string) (interfaces.TableReader, error) {
	fileType, compression := DetectFileTypeAndCompression(filePath)
	if fileType == FileTypeUnknown {
		return nil, fmt.Errorf("unsupported file type: %s", filePath)
	}

	if compression != CompressionNone {
		return openCompressed(filePath, fileType, compression)
	}

	switch fileType {
	case FileTypeXLSX:
		return NewWorkbookReader(filePath)
	case FileTypeXLS:
		return NewLegacyWorkbookReader(filePath)
	case FileTypeODS:
		return NewContainerReader(filePath)
	case FileTypeCSV, FileTypeTXT:
		return NewDelimitedReader(filePath)
	case FileTypeDBF:
		return NewLegacyTableReader(filePath)
	}
	return nil, fmt.Errorf("unsupported file type: %s", filePath)
}

// openCompressed decompresses the source into memory and dispatches to the
// byte-based reader variants
func openCompressed(filePath string, fileType FileType, compression CompressionType) (interfaces.TableReader, error) {
	result, err := DecompressFile(filePath, compression)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", filePath, err)
	}
	if result.Warning != "" {
		setDecompressionWarning(filePath, result.Warning)
	}

	name := innerBaseName(filePath)
	switch fileType {
	case FileTypeXLSX:
		return NewWorkbookReaderFromBytes(result.Data)
	case FileTypeODS:
		return NewContainerReaderFromBytes(result.Data)
	case FileTypeCSV, FileTypeTXT:
		return NewDelimitedReaderFromBytes(result.Data, fileType, name), nil
	case FileTypeDBF:
		return NewLegacyTableReaderFromBytes(result.Data, name)
	case FileTypeXLS:
		return NewLegacyWorkbookReaderFromBytes(result.Data)
	}
	return nil, fmt.Errorf("unsupported file type: %s", filePath)
}

// innerBaseName strips the compression suffix and the format extension
func innerBaseName(filePath string) string {
	base := filepath.Base(filePath)
	lower := strings.ToLower(base)
	for ext := range compressionExtensions {
		if strings.HasSuffix(lower, ext) {
			base = base[:len(base)-len(ext)]
			break
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
