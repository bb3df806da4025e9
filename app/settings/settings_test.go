package settings

import (
	"testing"

	"gopkg.in/yaml.v3"
)

// TestNormalizeClampsOverrides verifies out-of-range overrides fall back to
// the defaults per field
func TestNormalizeClampsOverrides(t *testing.T) {
	s := Settings{
		DefaultFormat:      "parquet",
		DebugSampleRows:    -1,
		PreviewRows:        0,
		MaxDirectoryFiles:  0,
		CacheSizeLimitMB:   -5,
		PathSuffixAttempts: 0,
	}
	s.normalize()

	if s != defaultSettings {
		t.Errorf("normalized = %+v, want defaults %+v", s, defaultSettings)
	}
}

// TestNormalizeKeepsValidOverrides verifies in-range overrides survive
func TestNormalizeKeepsValidOverrides(t *testing.T) {
	s := Settings{
		DefaultFormat:      "csv",
		DebugSampleRows:    10,
		PreviewRows:        5,
		MaxDirectoryFiles:  50,
		CacheSizeLimitMB:   16,
		PathSuffixAttempts: 3,
		LogPath:            "/tmp/run.log",
	}
	before := s
	s.normalize()
	if s != before {
		t.Errorf("normalize changed valid settings: %+v", s)
	}
}

// TestYAMLOverlay verifies a partial file overrides only the named fields
func TestYAMLOverlay(t *testing.T) {
	overlaid := defaultSettings
	err := yaml.Unmarshal([]byte("default_format: xlsx\npreview_rows: 7\n"), &overlaid)
	if err != nil {
		t.Fatal(err)
	}

	if overlaid.DefaultFormat != "xlsx" {
		t.Errorf("default_format = %s", overlaid.DefaultFormat)
	}
	if overlaid.PreviewRows != 7 {
		t.Errorf("preview_rows = %d", overlaid.PreviewRows)
	}
	if overlaid.DebugSampleRows != defaultSettings.DebugSampleRows {
		t.Errorf("unnamed field changed: %d", overlaid.DebugSampleRows)
	}
}
