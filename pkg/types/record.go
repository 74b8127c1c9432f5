// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the data types shared by the odis2vcp stages.
package types

import (
	"fmt"
	"strings"
)

// OutputMode selects which artifact the converter produces for each record.
type OutputMode string

const (
	// ModeRaw decodes the payload and writes the bytes verbatim.
	ModeRaw OutputMode = "raw"
	// ModeStructured wraps the record in a VCP SW-CNT container.
	ModeStructured OutputMode = "structured"
)

// ParseOutputMode resolves a user-supplied mode name. The empty string and
// "vcp" both select ModeStructured.
func ParseOutputMode(s string) (OutputMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "vcp", string(ModeStructured):
		return ModeStructured, nil
	case string(ModeRaw):
		return ModeRaw, nil
	}
	return "", fmt.Errorf("%w: %q (use raw or structured)", ErrUnknownMode, s)
}

// Label is the format name used in the run summary.
func (m OutputMode) Label() string {
	if m == ModeStructured {
		return "VCP"
	}
	return string(m)
}

// DatasetRecord is one PARAMETER_DATA element of an ODIS document with its
// metadata resolved.
type DatasetRecord struct {
	// Index is the zero-based position of the element in document order.
	Index int `json:"index" yaml:"index"`

	// DiagnosticAddress identifies the ECU, with the "0x00" prefix removed.
	DiagnosticAddress string `json:"diagnostic_address" yaml:"diagnostic_address"`

	// StartAddress is the hex payload offset, passed through unmodified.
	StartAddress string `json:"start_address" yaml:"start_address"`

	ZDCName    string `json:"zdc_name" yaml:"zdc_name"`
	ZDCVersion string `json:"zdc_version" yaml:"zdc_version"`
	Login      string `json:"login" yaml:"login"`

	// Label is the "<start address> <zdc name>" part of the artifact name.
	// It is captured when a LOGIN attribute is observed and carried over to
	// later records that lack one.
	Label string `json:"label" yaml:"label"`

	// Payload is the element's text: hex byte pairs, optionally with 0x
	// prefixes and comma separators.
	Payload string `json:"payload" yaml:"payload"`
}

// String identifies the record in log lines and errors.
func (r DatasetRecord) String() string {
	return fmt.Sprintf("#%d (module %s, %s)", r.Index, r.DiagnosticAddress, r.ZDCName)
}
