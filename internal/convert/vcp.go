// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/pdiddy/odis2vcp/pkg/types"
)

// dataFormatHex is the only DATEN-FORMAT-NAME the converter emits.
const dataFormatHex = "DFN_HEX"

type swContainer struct {
	XMLName xml.Name     `xml:"SW-CNT"`
	Ident   ident        `xml:"IDENT"`
	Areas   []dataRegion `xml:"DATENBEREICHE>DATENBEREICH"`
}

type ident struct {
	Login   string `xml:"LOGIN"`
	FileID  string `xml:"DATEIID"`
	Version string `xml:"VERSION-INHALT"`
}

type dataRegion struct {
	Name         string `xml:"DATEN-NAME"`
	Format       string `xml:"DATEN-FORMAT-NAME"`
	StartAddress string `xml:"START-ADR"`
	Size         string `xml:"GROESSE-DEKOMPRIMIERT"`
	Data         string `xml:"DATEN"`
}

// VCPConverter wraps a record in a VCP SW-CNT document.
type VCPConverter struct{}

func (VCPConverter) Format() types.OutputMode { return types.ModeStructured }

// Filename returns "<diagnostic address> VCP <label> - <description>.xml".
func (VCPConverter) Filename(rec types.DatasetRecord, description string) string {
	return rec.DiagnosticAddress + " VCP " + filenamePrefix(rec, description) + ".xml"
}

// Render builds the SW-CNT document. GROESSE-DEKOMPRIMIERT is the decoded
// size in bytes as lowercase 0x-prefixed hex; DATEN keeps the payload text
// exactly as it appeared in the source. The payload is still decoded, so a
// payload that is not valid hex fails with types.ErrDecode here as it does
// in raw mode.
func (VCPConverter) Render(rec types.DatasetRecord) ([]byte, error) {
	data, err := decodeRecord(rec)
	if err != nil {
		return nil, err
	}

	doc := swContainer{
		Ident: ident{
			Login:   rec.Login,
			FileID:  rec.ZDCName,
			Version: rec.ZDCVersion,
		},
		Areas: []dataRegion{{
			Name:         rec.ZDCName,
			Format:       dataFormatHex,
			StartAddress: rec.StartAddress,
			Size:         fmt.Sprintf("0x%x", len(data)),
			Data:         rec.Payload,
		}},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding SW-CNT for record %s: %w", rec, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
