package inference

import (
	"strconv"
	"testing"
	"time"

	"tableforge/app/interfaces"
)

// column builds a single-column row set from loosely typed cells
func column(cells ...any) []*interfaces.Row {
	rows := make([]*interfaces.Row, len(cells))
	for i, cell := range cells {
		rows[i] = &interfaces.Row{RowIndex: i, Cells: []any{cell}}
	}
	return rows
}

// TestDetectSchemaTypes tests the vote-threshold outcome per column shape
func TestDetectSchemaTypes(t *testing.T) {
	tests := []struct {
		name         string
		cells        []any
		expectedType interfaces.ColumnType
	}{
		{
			name:         "two of three numeric wins",
			cells:        []any{"10", "20.5", "thirty"},
			expectedType: interfaces.TypeNumeric,
		},
		{
			name:         "one of two numeric fails the majority",
			cells:        []any{"10", "thirty"},
			expectedType: interfaces.TypeCharacter,
		},
		{
			name:         "whole numbers resolve integer",
			cells:        []any{"10", "20", "30"},
			expectedType: interfaces.TypeInteger,
		},
		{
			name:         "dates win over stray text",
			cells:        []any{"2024-01-01", "2024-01-02", "15/03/2024", "n/a"},
			expectedType: interfaces.TypeDate,
		},
		{
			name:         "clock strings resolve time",
			cells:        []any{"9:30", "17:45:09", "not a time"},
			expectedType: interfaces.TypeTime,
		},
		{
			name:         "logical vocabulary",
			cells:        []any{"yes", "no", "yes", "maybe"},
			expectedType: interfaces.TypeLogical,
		},
		{
			name:         "typed durations resolve time",
			cells:        []any{2 * time.Hour, 30 * time.Minute},
			expectedType: interfaces.TypeTime,
		},
		{
			name:         "typed dates resolve date",
			cells:        []any{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
			expectedType: interfaces.TypeDate,
		},
		{
			name:         "typed bools resolve logical",
			cells:        []any{true, false, true},
			expectedType: interfaces.TypeLogical,
		},
		{
			name:         "mixed text stays character",
			cells:        []any{"alpha", "beta", "gamma"},
			expectedType: interfaces.TypeCharacter,
		},
		{
			name:         "pre-1900 dates do not vote as date",
			cells:        []any{"1889-06-01", "1890-01-01", "1891-12-31"},
			expectedType: interfaces.TypeCharacter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := DetectSchema([]string{"col"}, column(tt.cells...))
			if len(schema) != 1 {
				t.Fatalf("expected 1 column, got %d", len(schema))
			}
			if schema[0].Type != tt.expectedType {
				t.Errorf("detected %s, want %s", schema[0].Type, tt.expectedType)
			}
		})
	}
}

// TestDetectSchemaGhost verifies that a column with no valid samples is
// marked as a ghost and starts inactive
func TestDetectSchemaGhost(t *testing.T) {
	rows := column(nil, "", "   ", nil)
	schema := DetectSchema([]string{"empty"}, rows)

	col := schema[0]
	if !col.Ghost {
		t.Error("expected ghost column")
	}
	if col.Active {
		t.Error("ghost column should start inactive")
	}
	if col.Type != interfaces.TypeCharacter {
		t.Errorf("ghost column type = %s, want Character", col.Type)
	}
	// No observed width, so the Character sizing rule gives the padding alone.
	if col.Length != 10 {
		t.Errorf("ghost column length = %d, want 10", col.Length)
	}
}

// TestDetectSchemaSizing tests length and decimal observations
func TestDetectSchemaSizing(t *testing.T) {
	t.Run("numeric decimals from widest fraction", func(t *testing.T) {
		schema := DetectSchema([]string{"n"}, column("1.5", "2.25", "3.125"))
		col := schema[0]
		if col.Type != interfaces.TypeNumeric {
			t.Fatalf("type = %s, want Numeric", col.Type)
		}
		if col.Decimals != 3 {
			t.Errorf("decimals = %d, want 3", col.Decimals)
		}
		if col.Length != 10 {
			t.Errorf("length = %d, want the 10 floor", col.Length)
		}
	})

	t.Run("character length padded over max", func(t *testing.T) {
		schema := DetectSchema([]string{"c"}, column("short", "a much longer sample"))
		col := schema[0]
		if col.Type != interfaces.TypeCharacter {
			t.Fatalf("type = %s, want Character", col.Type)
		}
		if col.Length != len("a much longer sample")+10 {
			t.Errorf("length = %d, want maxLen+10", col.Length)
		}
	})

	t.Run("character length capped", func(t *testing.T) {
		long := make([]byte, 300)
		for i := range long {
			long[i] = 'x'
		}
		schema := DetectSchema([]string{"c"}, column(string(long), "y"))
		if schema[0].Length != interfaces.MaxCharacterLen {
			t.Errorf("length = %d, want cap %d", schema[0].Length, interfaces.MaxCharacterLen)
		}
	})
}

// TestDetectSchemaStrideSampling verifies that a type signal appearing only
// late in a large row set is still observed
func TestDetectSchemaStrideSampling(t *testing.T) {
	var cells []any
	for i := 0; i < 100000; i++ {
		cells = append(cells, strconv.Itoa(i))
	}
	schema := DetectSchema([]string{"n"}, column(cells...))
	if schema[0].Type != interfaces.TypeInteger {
		t.Errorf("detected %s, want Integer", schema[0].Type)
	}

	// The sample must touch rows across the whole file, not just the head:
	// decimals present only in the back half must still be observed.
	for i := 50000; i < 100000; i++ {
		cells[i] = "0.5"
	}
	schema = DetectSchema([]string{"n"}, column(cells...))
	if schema[0].Type != interfaces.TypeNumeric {
		t.Errorf("detected %s, want Numeric from late decimals", schema[0].Type)
	}
}

// TestDetectSchemaShortRows verifies that rows narrower than the header list
// are treated as missing cells, not as a panic
func TestDetectSchemaShortRows(t *testing.T) {
	rows := []*interfaces.Row{
		{RowIndex: 0, Cells: []any{"10", "full"}},
		{RowIndex: 1, Cells: []any{"20"}},
		{RowIndex: 2, Cells: []any{}},
	}
	schema := DetectSchema([]string{"a", "b"}, rows)
	if len(schema) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(schema))
	}
	if schema[0].Type != interfaces.TypeInteger {
		t.Errorf("column a = %s, want Integer", schema[0].Type)
	}
	if schema[1].Type != interfaces.TypeCharacter {
		t.Errorf("column b = %s, want Character", schema[1].Type)
	}
}
