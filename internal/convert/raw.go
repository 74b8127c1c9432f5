// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"github.com/pdiddy/odis2vcp/pkg/types"
)

// RawConverter writes the decoded payload bytes verbatim.
type RawConverter struct{}

func (RawConverter) Format() types.OutputMode { return types.ModeRaw }

// Filename returns "<diagnostic address> <label> - <description>.bin".
func (RawConverter) Filename(rec types.DatasetRecord, description string) string {
	return rec.DiagnosticAddress + " " + filenamePrefix(rec, description) + ".bin"
}

func (RawConverter) Render(rec types.DatasetRecord) ([]byte, error) {
	return decodeRecord(rec)
}
