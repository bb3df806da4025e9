package fileloader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Directory batch discovery: expand a directory plus glob pattern into the
// list of supported source files to queue for analysis.

// DefaultFilePattern matches every supported source extension, recursively
const DefaultFilePattern = "**/*.{csv,txt,xls,xlsx,ods,dbf}"

// DirectoryInfo describes the outcome of one discovery pass
type DirectoryInfo struct {
	RootPath   string
	Files      []string
	TotalFiles int
	TotalSize  int64
}

// IsDirectory reports whether the path names a directory
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// DiscoverFiles expands the pattern under dirPath into supported source
// files, sorted for deterministic queue order and capped at maxFiles
// (0 means no cap).
func DiscoverFiles(dirPath, pattern string, maxFiles int) (*DirectoryInfo, error) {
	if !IsDirectory(dirPath) {
		return nil, fmt.Errorf("not a directory: %s", dirPath)
	}
	if pattern == "" {
		pattern = DefaultFilePattern
	}

	matches, err := doublestar.FilepathGlob(filepath.Join(dirPath, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
	}

	info := &DirectoryInfo{RootPath: dirPath}
	for _, match := range matches {
		stat, err := os.Stat(match)
		if err != nil || stat.IsDir() {
			continue
		}
		if DetectFileType(match) == FileTypeUnknown && !IsCompressedFile(match) {
			continue
		}
		info.Files = append(info.Files, match)
		info.TotalSize += stat.Size()
		if maxFiles > 0 && len(info.Files) >= maxFiles {
			break
		}
	}

	sort.Strings(info.Files)
	info.TotalFiles = len(info.Files)
	return info, nil
}
