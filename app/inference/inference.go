package inference

import (
	"strconv"
	"strings"
	"time"

	"tableforge/app/interfaces"
	"tableforge/app/sanitize"
)

// Package inference detects a column type per header from the full row set of
// one record set. It never reads every row: a stride sample of at most
// ~targetSamples rows spread uniformly across the file catches type signals
// that only appear late (footers, late-arriving real data) without the cost
// of a full scan.

// targetSamples bounds the number of rows visited per record set
const targetSamples = 200

// columnStats accumulates votes and size observations for one column
type columnStats struct {
	timeVotes     int
	dateVotes     int
	numericVotes  int
	logicalVotes  int
	validCount    int
	maxLen        int
	maxDecimals   int
	separatorSeen bool
}

// logicalVocabulary is the closed detection vocabulary. Membership is
// case-insensitive and exact.
var logicalVocabulary = map[string]bool{
	"true": true, "false": true, "yes": true, "no": true,
	"y": true, "n": true, "1": true, "0": true, "si": true,
}

// DetectSchema produces one DetectedColumn per header via stride sampling and
// weighted voting over the given rows.
func DetectSchema(headers []string, rows []*interfaces.Row) []*interfaces.DetectedColumn {
	stats := make([]columnStats, len(headers))

	total := len(rows)
	step := total / targetSamples
	if step < 1 {
		step = 1
	}

	for i := 0; i < total; i += step {
		row := rows[i]
		for col := range headers {
			var cell any
			if col < len(row.Cells) {
				cell = row.Cells[col]
			}
			classify(cell, &stats[col])
		}
	}

	schema := make([]*interfaces.DetectedColumn, len(headers))
	for i, name := range headers {
		schema[i] = resolve(name, &stats[i])
	}
	return schema
}

// classify casts one sampled cell's vote. Priority is strict and first match
// wins: Time, then Date, then Numeric, then Logical. A cell matching none of
// the four still counts toward validCount, it just votes for nothing.
func classify(cell any, st *columnStats) {
	switch v := cell.(type) {
	case nil:
		return
	case time.Duration:
		st.validCount++
		st.timeVotes++
		st.observeLen(8)
		return
	case time.Time:
		st.validCount++
		st.dateVotes++
		st.observeLen(8)
		return
	case bool:
		st.validCount++
		st.logicalVotes++
		st.observeLen(1)
		return
	case float64:
		st.validCount++
		st.numericVotes++
		s := strconv.FormatFloat(v, 'f', -1, 64)
		st.observeLen(len(s))
		st.observeDecimals(s)
		return
	}

	s := strings.TrimSpace(stringify(cell))
	if s == "" {
		return
	}
	st.validCount++
	st.observeLen(len(s))

	if sanitize.IsClockString(s) {
		st.timeVotes++
		return
	}

	if strings.ContainsAny(s, "/-") {
		if t, ok := sanitize.ParseDate(s); ok && t.Year() >= 1900 {
			st.dateVotes++
			return
		}
	}

	normalized := strings.ReplaceAll(s, ",", ".")
	if _, err := strconv.ParseFloat(normalized, 64); err == nil {
		st.numericVotes++
		if strings.ContainsAny(s, ".,") {
			st.separatorSeen = true
			st.observeDecimals(normalized)
		}
		return
	}

	if logicalVocabulary[strings.ToLower(s)] {
		st.logicalVotes++
	}
}

// observeLen tracks the maximum rendered width seen in the column
func (st *columnStats) observeLen(n int) {
	if n > st.maxLen {
		st.maxLen = n
	}
}

// observeDecimals tracks the maximum decimal-digit count seen in the column
func (st *columnStats) observeDecimals(s string) {
	if dot := strings.LastIndex(s, "."); dot >= 0 {
		if d := len(s) - dot - 1; d > st.maxDecimals {
			st.maxDecimals = d
		}
	}
}

// resolve applies the winning rule: a type wins only when its votes exceed
// half of validCount, checked in priority order. No winner, or no valid
// samples at all, falls back to Character; the latter additionally marks the
// column as a ghost, excluded from export by default.
func resolve(name string, st *columnStats) *interfaces.DetectedColumn {
	col := &interfaces.DetectedColumn{Name: name, Active: true}

	if st.validCount == 0 {
		col.Type = interfaces.TypeCharacter
		col.Length = minInt(interfaces.MaxCharacterLen, st.maxLen+10)
		col.Ghost = true
		col.Active = false
		return col
	}

	wins := func(votes int) bool { return votes*2 > st.validCount }

	switch {
	case wins(st.timeVotes):
		col.Type = interfaces.TypeTime
		col.Length = maxInt(8, st.maxLen)
	case wins(st.dateVotes):
		col.Type = interfaces.TypeDate
		col.Length = 8
	case wins(st.numericVotes):
		if st.separatorSeen && st.maxDecimals > 0 {
			col.Type = interfaces.TypeNumeric
			col.Decimals = st.maxDecimals
		} else {
			col.Type = interfaces.TypeInteger
		}
		col.Length = maxInt(10, st.maxLen)
	case wins(st.logicalVotes):
		col.Type = interfaces.TypeLogical
		col.Length = 1
	default:
		col.Type = interfaces.TypeCharacter
		col.Length = minInt(interfaces.MaxCharacterLen, st.maxLen+10)
	}

	return col
}

// stringify renders non-string cells for width measurement
func stringify(cell any) string {
	if s, ok := cell.(string); ok {
		return s
	}
	if cell == nil {
		return ""
	}
	switch v := cell.(type) {
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
