package sanitize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tableforge/app/interfaces"
)

// Package sanitize converts one loosely typed source cell into the canonical
// textual form of a target column type, reporting whether the conversion lost
// information. Sanitize is pure: same input, same output, no side effects.
// It is called from two places with the same semantics: the interactive
// validation preview over the debug sample, and the export engine's final
// pass over every cell.

// Result is the transient outcome of sanitizing one cell. It is never
// persisted, only written to the surgical trace.
type Result struct {
	Value string
	Loss  bool
}

// DateEpoch is the default date for empty or unparseable input. The legacy
// binary target cannot represent anything older.
const DateEpoch = "1900-01-01"

// truncFallbackLen bounds the raw string kept when time parsing fails entirely
const truncFallbackLen = 20

// strictTimePattern matches H+:MM or H+:MM:SS with an optional sign.
// Hours are unbounded: durations beyond 24h are legal.
var strictTimePattern = regexp.MustCompile(`^[+-]?\d+:\d{2}(:\d{2})?$`)

// serialDateBase is the spreadsheet serial date origin (the classic
// off-by-two 1900 system: serial 1 is 1899-12-31).
var serialDateBase = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// invariantDateLayouts is the first parse pass: ISO and month-first forms.
var invariantDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"01/02/2006 15:04:05",
}

// localeDateLayouts is the second parse pass: day-first forms, matching the
// single-byte legacy inputs this engine was built around.
var localeDateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"02/01/2006 15:04:05",
}

// truthyValues is the closed vocabulary accepted as logical true.
var truthyValues = map[string]bool{
	"true": true, "yes": true, "y": true, "1": true, "si": true, "t": true,
}

// Sanitize converts raw into the canonical textual form of the target type.
// The returned Loss flag is true when information was discarded to make the
// value fit; empty input never counts as loss, it maps to the type default.
func Sanitize(raw any, target interfaces.ColumnType) Result {
	if isEmpty(raw) {
		return emptyDefault(target)
	}

	switch target {
	case interfaces.TypeTime:
		return sanitizeTime(raw)
	case interfaces.TypeDate:
		return sanitizeDate(raw)
	case interfaces.TypeNumeric:
		return sanitizeNumeric(raw, false)
	case interfaces.TypeInteger:
		return sanitizeNumeric(raw, true)
	case interfaces.TypeLogical:
		return sanitizeLogical(raw)
	default:
		return Result{Value: strings.TrimSpace(stringify(raw))}
	}
}

// isEmpty reports whether the raw cell carries no value at all
func isEmpty(raw any) bool {
	if raw == nil {
		return true
	}
	if s, ok := raw.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// emptyDefault returns the per-type default for empty input. None of these
// count as loss.
func emptyDefault(target interfaces.ColumnType) Result {
	switch target {
	case interfaces.TypeNumeric, interfaces.TypeInteger:
		return Result{Value: "0"}
	case interfaces.TypeLogical:
		return Result{Value: "F"}
	case interfaces.TypeDate:
		return Result{Value: DateEpoch}
	default:
		return Result{Value: ""}
	}
}

// stringify renders a loosely typed cell as text for the Character path and
// for the fallback branches of the typed paths.
func stringify(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case time.Duration:
		return formatSignedClock(v)
	default:
		return fmt.Sprint(v)
	}
}

// IsClockString reports whether s matches the strict [sign]H+:MM[:SS] form
func IsClockString(s string) bool {
	return strictTimePattern.MatchString(s)
}

// sanitizeTime normalizes input into [sign]H:MM:SS. Structured values and
// strict clock strings pass through losslessly; everything else is attempted
// as a fractional-day number (1.0 == 24h) before falling back to a lossy
// truncation of the raw text.
func sanitizeTime(raw any) Result {
	switch v := raw.(type) {
	case time.Time:
		return Result{Value: v.Format("15:04:05")}
	case time.Duration:
		return Result{Value: formatSignedClock(v)}
	case float64:
		return Result{Value: dayFractionToClock(v)}
	}

	s := strings.TrimSpace(stringify(raw))
	if strictTimePattern.MatchString(s) {
		return Result{Value: s}
	}

	// Spreadsheet time convention: a plain number is a fraction of a day.
	normalized := strings.ReplaceAll(s, ",", ".")
	if f, err := strconv.ParseFloat(normalized, 64); err == nil {
		return Result{Value: dayFractionToClock(f)}
	}

	return Result{Value: truncate(s, truncFallbackLen), Loss: true}
}

// dayFractionToClock converts a fractional-day value into [sign]H:MM:SS,
// preserving the sign and supporting magnitudes beyond 24 hours.
func dayFractionToClock(f float64) string {
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}
	total := int64(math.Round(f * 86400))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
}

// formatSignedClock renders a duration as [sign]H:MM:SS
func formatSignedClock(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%s%d:%02d:%02d", sign, total/3600, (total%3600)/60, total%60)
}

// sanitizeDate normalizes input into yyyy-MM-dd. Dates older than 1900 are
// reformatted but flagged lossy: the legacy binary target cannot store them.
func sanitizeDate(raw any) Result {
	if t, ok := raw.(time.Time); ok {
		return dateResult(t)
	}

	s := strings.TrimSpace(stringify(raw))
	if isZeroDatePlaceholder(s) {
		return Result{Value: DateEpoch}
	}

	if t, ok := ParseDate(s); ok {
		return dateResult(t)
	}

	// Last chance: a numeric spreadsheet serial date.
	normalized := strings.ReplaceAll(s, ",", ".")
	if f, err := strconv.ParseFloat(normalized, 64); err == nil {
		t := serialDateBase.Add(time.Duration(f * float64(24*time.Hour)))
		return dateResult(t)
	}

	return Result{Value: DateEpoch, Loss: true}
}

// ParseDate attempts the textual date cascade: the invariant layouts first,
// then the day-first locale layouts. The inference engine shares this cascade
// so detection and sanitization can never disagree on what a date is.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range invariantDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localeDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// dateResult formats a parsed date, flagging pre-1900 values as lossy
func dateResult(t time.Time) Result {
	return Result{Value: t.Format("2006-01-02"), Loss: t.Year() < 1900}
}

// isZeroDatePlaceholder reports whether the string is an all-zero date
// placeholder such as "0000-00-00" or "00/00/0000"
func isZeroDatePlaceholder(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r == '0':
			digits++
		case r >= '1' && r <= '9':
			return false
		}
	}
	return digits > 0
}

// sanitizeNumeric normalizes numeric text under the last-separator-wins rule:
// whichever of ',' and '.' occurs last is the decimal separator, the other is
// stripped as a thousands separator. A comma-only value treats the comma as
// decimal.
func sanitizeNumeric(raw any, integer bool) Result {
	if f, ok := rawFloat(raw); ok {
		if integer {
			return integerResult(f, stringify(raw))
		}
		return Result{Value: strconv.FormatFloat(f, 'f', -1, 64)}
	}

	s := strings.TrimSpace(stringify(raw))

	// Strip everything except digits, separators, sign and exponent marker.
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '+', r == '-', r == 'e', r == 'E':
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case lastComma >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
		// Multiple commas can only have been thousands separators.
		if strings.Count(cleaned, ".") > 1 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return Result{Value: "0", Loss: true}
	}

	if integer {
		return integerResult(f, s)
	}
	return Result{Value: strconv.FormatFloat(f, 'f', -1, 64)}
}

// rawFloat extracts a float from an already numeric cell
func rawFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// integerResult truncates toward zero. Loss is flagged when the original
// textual representation differs from the truncated value's canonical form:
// any fractional part or formatting difference counts.
func integerResult(f float64, original string) Result {
	truncated := math.Trunc(f)
	canonical := strconv.FormatFloat(truncated, 'f', -1, 64)
	return Result{Value: canonical, Loss: strings.TrimSpace(original) != canonical}
}

// sanitizeLogical maps input onto T/F via a closed truthy vocabulary.
// Anything unrecognized is false; logical coercion never counts as loss.
func sanitizeLogical(raw any) Result {
	if b, ok := raw.(bool); ok {
		if b {
			return Result{Value: "T"}
		}
		return Result{Value: "F"}
	}
	s := strings.ToLower(strings.TrimSpace(stringify(raw)))
	if truthyValues[s] {
		return Result{Value: "T"}
	}
	return Result{Value: "F"}
}

// truncate shortens s to at most n bytes without touching shorter input
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
