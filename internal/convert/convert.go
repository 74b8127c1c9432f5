// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns dataset records into output artifacts: raw binary
// payloads or VCP SW-CNT containers.
package convert

import (
	"strings"

	"github.com/pdiddy/odis2vcp/pkg/types"
)

// Converter renders a record into the bytes of one artifact. Each output
// mode has one implementation.
type Converter interface {
	// Format returns the output mode this converter implements.
	Format() types.OutputMode

	// Filename returns the artifact file name for rec. description is the
	// operator-supplied text appended to every name.
	Filename(rec types.DatasetRecord, description string) string

	// Render returns the artifact content for rec.
	Render(rec types.DatasetRecord) ([]byte, error)
}

// Registry maps output modes to converters.
type Registry struct {
	byFormat map[types.OutputMode]Converter
}

// NewRegistry returns a registry holding the raw and VCP converters.
func NewRegistry() *Registry {
	r := &Registry{byFormat: map[types.OutputMode]Converter{}}
	r.Register(RawConverter{})
	r.Register(VCPConverter{})
	return r
}

// Register adds c, replacing any converter for the same mode.
func (r *Registry) Register(c Converter) { r.byFormat[c.Format()] = c }

// Get returns the converter for mode.
func (r *Registry) Get(mode types.OutputMode) (Converter, bool) {
	c, ok := r.byFormat[mode]
	return c, ok
}

var unsafeName = strings.NewReplacer("/", "_", "\\", "_")

// filenamePrefix joins the record label and the description. Path
// separators are replaced so every artifact lands in the output directory.
func filenamePrefix(rec types.DatasetRecord, description string) string {
	return unsafeName.Replace(rec.Label + " - " + description)
}
