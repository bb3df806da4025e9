package ticket

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"tableforge/app/interfaces"
	"tableforge/app/sanitize"
)

// Package ticket assembles export tickets from enabled record sets. A ticket
// carries everything the export engine needs: resolved path, export-safe
// schema and a sanitized row matrix. Sanitization here is speculative; the
// export engine re-runs it per cell so the trace reflects what is actually
// written.

// DefaultOutputName is used when a source has no user-provided output name
const DefaultOutputName = "Untitled"

// DefaultMergeName is used when a merge ticket has no user-provided name
const DefaultMergeName = "Merged"

// SanitizeName derives an export-safe identifier from a user-visible column
// name: uppercase, runs of non-alphanumerics collapsed to one underscore,
// leading digit prefixed with an underscore. The result is NOT yet bounded
// to the 10-character budget; that is the truncation pass's job.
func SanitizeName(name string) string {
	upper := strings.ToUpper(strings.TrimSpace(name))

	var b strings.Builder
	pendingSep := false
	for _, r := range upper {
		alnum := (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !alnum {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}

	out := b.String()
	if out == "" {
		return "COL"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

// splitTruncate shortens a name over the budget by keeping the first 5 and
// last 4 characters. Names sharing a long common prefix stay distinct this
// way where a head-truncation would collide.
func splitTruncate(name string, budget int) string {
	if len(name) <= budget {
		return name
	}
	const headKeep, tailKeep = 5, 4
	return name[:headKeep] + name[len(name)-tailKeep:]
}

// ResolveFieldNames maps schema columns onto unique export names within the
// field-name budget. Collisions get a _N suffix, with the base re-truncated
// to leave room for the suffix.
func ResolveFieldNames(columns []*interfaces.DetectedColumn) []string {
	names := make([]string, len(columns))
	seen := make(map[string]bool, len(columns))

	for i, col := range columns {
		base := splitTruncate(SanitizeName(col.Name), interfaces.MaxFieldNameLen)
		candidate := base
		for n := 1; seen[candidate]; n++ {
			suffix := "_" + strconv.Itoa(n)
			room := interfaces.MaxFieldNameLen - len(suffix)
			trimmed := base
			if len(trimmed) > room {
				trimmed = trimmed[:room]
			}
			candidate = trimmed + suffix
		}
		seen[candidate] = true
		names[i] = candidate
	}
	return names
}

// exportSchema builds the ticket schema for the active columns of a record
// set: resolved unique names, original types and sizing, all marked active.
func exportSchema(source *interfaces.SourceRecordSet, active []int) []*interfaces.DetectedColumn {
	columns := make([]*interfaces.DetectedColumn, len(active))
	for i, idx := range active {
		columns[i] = source.Schema[idx].Clone()
	}
	for i, name := range ResolveFieldNames(columns) {
		columns[i].Name = name
		columns[i].Active = true
	}
	return columns
}

// sanitizeRow maps one source row onto the ticket schema. active holds the
// source column indices feeding each schema slot; -1 or out-of-range cells
// sanitize from nil into the slot's type default.
func sanitizeRow(row *interfaces.Row, active []int, schema []*interfaces.DetectedColumn) []string {
	out := make([]string, len(schema))
	for slot, col := range schema {
		var raw any
		if slot < len(active) {
			if idx := active[slot]; idx >= 0 && row != nil && idx < len(row.Cells) {
				raw = row.Cells[idx]
			}
		}
		out[slot] = sanitize.Sanitize(raw, col.Type).Value
	}
	return out
}

// outputPath joins the output directory with the ticket name, forcing the
// extension to match the target format
func outputPath(dir, name string, format interfaces.TargetFormat) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultOutputName
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(dir, name+format.Extension())
}

// BuildIndependent assembles one ticket per enabled source record set.
// Disabled sources and sources with no active columns are skipped.
func BuildIndependent(sources []*interfaces.SourceRecordSet, format interfaces.TargetFormat, outputDir string) []*interfaces.ForgeTicket {
	var tickets []*interfaces.ForgeTicket
	for _, source := range sources {
		if !source.Enabled {
			continue
		}
		active := source.ActiveColumns()
		if len(active) == 0 {
			continue
		}

		schema := exportSchema(source, active)
		rows := make([][]string, 0, len(source.Rows))
		for _, row := range source.Rows {
			rows = append(rows, sanitizeRow(row, active, schema))
		}

		tickets = append(tickets, &interfaces.ForgeTicket{
			ID:         uuid.NewString(),
			OutputPath: outputPath(outputDir, source.OutputName, format),
			Format:     format,
			Schema:     schema,
			Rows:       rows,
			Sources:    []string{source.FileName},
		})
	}
	return tickets
}

// BuildMerged assembles a single ticket from every enabled source. The first
// enabled source's active schema becomes the unified schema; each source's
// rows are mapped positionally through its own active-column indices, so a
// source with fewer active columns than the unified schema contributes type
// defaults for the missing slots. Rows are concatenated in source order.
func BuildMerged(sources []*interfaces.SourceRecordSet, format interfaces.TargetFormat, outputDir, mergeName string) *interfaces.ForgeTicket {
	var enabled []*interfaces.SourceRecordSet
	for _, source := range sources {
		if source.Enabled && len(source.ActiveColumns()) > 0 {
			enabled = append(enabled, source)
		}
	}
	if len(enabled) == 0 {
		return nil
	}

	first := enabled[0]
	schema := exportSchema(first, first.ActiveColumns())

	var rows [][]string
	var names []string
	for _, source := range enabled {
		active := source.ActiveColumns()
		for _, row := range source.Rows {
			rows = append(rows, sanitizeRow(row, active, schema))
		}
		names = append(names, source.FileName)
	}

	if strings.TrimSpace(mergeName) == "" {
		mergeName = DefaultMergeName
	}
	return &interfaces.ForgeTicket{
		ID:         uuid.NewString(),
		OutputPath: outputPath(outputDir, mergeName, format),
		Format:     format,
		Schema:     schema,
		Rows:       rows,
		Sources:    names,
	}
}
