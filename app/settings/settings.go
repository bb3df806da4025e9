package settings

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings holds engine settings that can be overridden from a yaml file.
type Settings struct {
	// Default target format when none is requested: dbf, xlsx or csv
	DefaultFormat string `yaml:"default_format"`
	// Bounded debug sample kept per record set for interactive validation
	DebugSampleRows int `yaml:"debug_sample_rows"`
	// Rows shown when previewing a completed output file
	PreviewRows int `yaml:"preview_rows"`
	// Maximum number of files when queueing a directory
	MaxDirectoryFiles int `yaml:"max_directory_files"`
	// Cache size limit in MB for analyzed record sets
	CacheSizeLimitMB int `yaml:"cache_size_limit_mb"`
	// How many _N suffixes to try when the requested output path is locked
	PathSuffixAttempts int `yaml:"path_suffix_attempts"`
	// Forensic log sink path; empty selects the default under the user
	// config directory
	LogPath string `yaml:"log_path"`
}

// defaultSettings defines the built-in defaults
var defaultSettings = Settings{
	DefaultFormat:      "dbf",
	DebugSampleRows:    50,
	PreviewRows:        20,
	MaxDirectoryFiles:  500,
	CacheSizeLimitMB:   100,
	PathSuffixAttempts: 100,
}

// settingsFilePath returns the per-user settings file location
func settingsFilePath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "tableforge", "settings.yaml"), nil
}

// GetEffectiveSettings returns the effective settings: defaults overlaid
// with file overrides if any. If anything goes wrong it returns defaults.
func GetEffectiveSettings() Settings {
	settings := defaultSettings
	path, err := settingsFilePath()
	if err != nil {
		return settings
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return settings
	}
	overlaid := settings
	if err := yaml.Unmarshal(b, &overlaid); err != nil {
		return settings
	}
	overlaid.normalize()
	return overlaid
}

// Save persists the settings to the per-user settings file
func Save(s Settings) error {
	path, err := settingsFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// normalize clamps overridden values back into sane ranges
func (s *Settings) normalize() {
	if s.DefaultFormat != "dbf" && s.DefaultFormat != "xlsx" && s.DefaultFormat != "csv" {
		s.DefaultFormat = defaultSettings.DefaultFormat
	}
	if s.DebugSampleRows < 1 {
		s.DebugSampleRows = defaultSettings.DebugSampleRows
	}
	if s.PreviewRows < 1 {
		s.PreviewRows = defaultSettings.PreviewRows
	}
	if s.MaxDirectoryFiles < 1 {
		s.MaxDirectoryFiles = defaultSettings.MaxDirectoryFiles
	}
	if s.CacheSizeLimitMB < 1 {
		s.CacheSizeLimitMB = defaultSettings.CacheSizeLimitMB
	}
	if s.PathSuffixAttempts < 1 {
		s.PathSuffixAttempts = defaultSettings.PathSuffixAttempts
	}
}
