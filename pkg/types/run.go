// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RunSummary holds the counters of one pipeline invocation.
type RunSummary struct {
	// Mode is the output mode the run used.
	Mode OutputMode `json:"mode" yaml:"mode"`

	// Total counts every PARAMETER_DATA element considered.
	Total int `json:"total" yaml:"total"`

	// Converted counts artifacts successfully written.
	Converted int `json:"converted" yaml:"converted"`

	// Artifacts lists the written paths in record order.
	Artifacts []string `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
}

// Complete reports whether every record was converted.
func (s RunSummary) Complete() bool {
	return s.Converted == s.Total
}

// Artifact describes one written output file.
type Artifact struct {
	Path              string `json:"path" yaml:"path"`
	RecordIndex       int    `json:"record_index" yaml:"record_index"`
	DiagnosticAddress string `json:"diagnostic_address" yaml:"diagnostic_address"`
	StartAddress      string `json:"start_address" yaml:"start_address"`
	ZDCName           string `json:"zdc_name" yaml:"zdc_name"`
	ZDCVersion        string `json:"zdc_version" yaml:"zdc_version"`

	// Size is the decoded payload length in bytes.
	Size int `json:"size" yaml:"size"`
}

// RunInfo describes a run when it starts.
type RunInfo struct {
	InputPath   string     `json:"input_path" yaml:"input_path"`
	Mode        OutputMode `json:"mode" yaml:"mode"`
	Description string     `json:"description" yaml:"description"`
	OutputDir   string     `json:"output_dir" yaml:"output_dir"`
}
