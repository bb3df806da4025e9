package fileloader

import (
	"strings"
)

// compressionExtensions maps compression extensions to their CompressionType
var compressionExtensions = map[string]CompressionType{
	".gz":  CompressionGzip,
	".bz2": CompressionBzip2,
	".xz":  CompressionXZ,
}

// typeExtensions maps source extensions to their FileType
var typeExtensions = map[string]FileType{
	".xlsx": FileTypeXLSX,
	".xls":  FileTypeXLS,
	".ods":  FileTypeODS,
	".csv":  FileTypeCSV,
	".txt":  FileTypeTXT,
	".dbf":  FileTypeDBF,
}

// DetectFileType determines the file type from the file extension. Unknown
// extensions stay unknown; the caller decides whether to skip the file.
// Note: this does NOT strip compression suffixes. Use
// DetectFileTypeAndCompression for that.
func DetectFileType(filePath string) FileType {
	if filePath == "" {
		return FileTypeUnknown
	}
	lower := strings.ToLower(filePath)
	for ext, ft := range typeExtensions {
		if strings.HasSuffix(lower, ext) {
			return ft
		}
	}
	return FileTypeUnknown
}

// DetectFileTypeAndCompression determines both the source type and the
// compression wrapped around it. A double extension (data.csv.gz) names both;
// when no compression extension is present the magic bytes get a chance, so a
// mislabeled compressed file still loads.
func DetectFileTypeAndCompression(filePath string) (FileType, CompressionType) {
	if filePath == "" {
		return FileTypeUnknown, CompressionNone
	}

	lower := strings.ToLower(filePath)
	compressionType := CompressionNone
	innerPath := lower

	for ext, ct := range compressionExtensions {
		if strings.HasSuffix(lower, ext) {
			compressionType = ct
			innerPath = strings.TrimSuffix(lower, ext)
			break
		}
	}

	if compressionType == CompressionNone {
		if magicType, err := DetectCompressionByMagic(filePath); err == nil && magicType != CompressionNone {
			// No extension hint for the inner type; delimited text is the
			// format compressed sources overwhelmingly wrap.
			return FileTypeCSV, magicType
		}
	}

	return DetectFileType(innerPath), compressionType
}

// IsCompressedFile checks if a file is compressed based on extension or magic bytes
func IsCompressedFile(filePath string) bool {
	_, compression := DetectFileTypeAndCompression(filePath)
	return compression != CompressionNone
}
