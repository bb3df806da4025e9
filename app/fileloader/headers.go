package fileloader

import (
	"strings"
)

// excelColumnName converts a 0-based index to a spreadsheet-style column
// name: 0 -> A, 25 -> Z, 26 -> AA.
func excelColumnName(index int) string {
	result := ""
	index++

	for index > 0 {
		index--
		result = string(rune('A'+index%26)) + result
		index /= 26
	}

	return result
}

// NormalizeHeaders replaces empty or whitespace-only header cells with
// synthetic names (Unnamed_A, Unnamed_B, ...) so every record set schema has
// an identifier per column regardless of how sloppy the source header row is.
// Non-empty headers pass through untouched.
func NormalizeHeaders(header []string) []string {
	normalized := make([]string, len(header))
	emptyCount := 0

	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			normalized[i] = "Unnamed_" + excelColumnName(emptyCount)
			emptyCount++
		} else {
			normalized[i] = strings.TrimSpace(h)
		}
	}

	return normalized
}
