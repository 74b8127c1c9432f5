// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// OutputConfig holds settings for the conversion stage.
type OutputConfig struct {
	// Mode is raw, structured, or vcp (alias of structured).
	Mode string `json:"mode" yaml:"mode" mapstructure:"mode"`

	// Description is appended to every artifact name. When empty the input
	// file's base name is used.
	Description string `json:"description" yaml:"description" mapstructure:"description"`

	// Dir is the directory artifacts are written to (default ".").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Workers is the number of records converted concurrently (default 1).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// Overwrite allows replacing files left by earlier runs (default true).
	Overwrite bool `json:"overwrite" yaml:"overwrite" mapstructure:"overwrite"`
}

// ManifestConfig holds settings for the run history database.
type ManifestConfig struct {
	// Enabled turns on recording of runs and artifacts.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Dir is the directory holding odis2vcp.db.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all settings read from odis2vcp.yaml, the environment,
// and command-line flags.
type Config struct {
	Output   OutputConfig   `json:"output" yaml:"output" mapstructure:"output"`
	Manifest ManifestConfig `json:"manifest" yaml:"manifest" mapstructure:"manifest"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
}
