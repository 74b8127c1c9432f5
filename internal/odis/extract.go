// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package odis

import (
	"fmt"
	"strings"

	"github.com/pdiddy/odis2vcp/pkg/types"
)

// RecordTag is the element name of a dataset record.
const RecordTag = "PARAMETER_DATA"

// Attribute names read from each record element.
const (
	AttrDiagnosticAddress = "DIAGNOSTIC_ADDRESS"
	AttrStartAddress      = "START_ADDRESS"
	AttrZDCName           = "ZDC_NAME"
	AttrZDCVersion        = "ZDC_VERSION"
	AttrLogin             = "LOGIN"
)

// addressPrefix is removed from diagnostic addresses ("0x0017" -> "17").
const addressPrefix = "0x00"

// recordAttrs lists the metadata attributes in the order they are read.
var recordAttrs = []string{
	AttrDiagnosticAddress,
	AttrStartAddress,
	AttrZDCName,
	AttrZDCVersion,
	AttrLogin,
}

// metadata accumulates attribute values across the records of one
// document. An attribute missing from an element leaves the previous value
// in place, so a record inherits whatever the nearest preceding element
// declared. The label is only recomputed when LOGIN is present.
type metadata struct {
	values map[string]string
	label  string
}

func newMetadata() *metadata {
	return &metadata{values: make(map[string]string, len(recordAttrs))}
}

// observe reads the record attributes of el into m and reports each value
// read to fn.
func (m *metadata) observe(el *Node, fn func(name, value string)) {
	for _, name := range recordAttrs {
		v, ok := el.Attr(name)
		if !ok {
			continue
		}
		if name == AttrDiagnosticAddress {
			v = strings.TrimPrefix(v, addressPrefix)
		}
		m.values[name] = v
		if fn != nil {
			fn(name, v)
		}
		if name == AttrLogin {
			m.label = m.values[AttrStartAddress] + " " + m.values[AttrZDCName]
		}
	}
}

// missing returns the attributes never observed so far.
func (m *metadata) missing() []string {
	var out []string
	for _, name := range recordAttrs {
		if _, ok := m.values[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

func (m *metadata) record(index int, payload string) types.DatasetRecord {
	return types.DatasetRecord{
		Index:             index,
		DiagnosticAddress: m.values[AttrDiagnosticAddress],
		StartAddress:      m.values[AttrStartAddress],
		ZDCName:           m.values[AttrZDCName],
		ZDCVersion:        m.values[AttrZDCVersion],
		Login:             m.values[AttrLogin],
		Label:             m.label,
		Payload:           payload,
	}
}

// Extractor walks a Document and produces one DatasetRecord per
// PARAMETER_DATA element.
type Extractor struct {
	// OnAttribute, when set, is called for every attribute read, with the
	// record index, attribute name and normalised value.
	OnAttribute func(index int, name, value string)
}

// Extract calls yield for each record in document order and returns the
// number of record elements considered. It stops at the first malformed
// record or the first error returned by yield; total then counts the
// failing element too.
//
// A record is malformed when its element has no leading text node or when
// one of the five metadata attributes has not been declared by it or any
// earlier element.
func (x *Extractor) Extract(doc *Document, yield func(types.DatasetRecord) error) (total int, err error) {
	meta := newMetadata()

	for i, el := range doc.Elements(RecordTag) {
		meta.observe(el, func(name, value string) {
			if x.OnAttribute != nil {
				x.OnAttribute(i, name, value)
			}
		})
		total++

		payload, ok := el.FirstText()
		if !ok {
			return total, types.NewRecordError(types.ErrMalformedRecord, meta.record(i, ""),
				fmt.Errorf("%s element has no text payload", RecordTag))
		}

		rec := meta.record(i, payload)
		if missing := meta.missing(); len(missing) > 0 {
			return total, types.NewRecordError(types.ErrMalformedRecord, rec,
				fmt.Errorf("attributes never declared: %s", strings.Join(missing, ", ")))
		}

		if err := yield(rec); err != nil {
			return total, err
		}
	}
	return total, nil
}

// All extracts every record into a slice.
func (x *Extractor) All(doc *Document) ([]types.DatasetRecord, error) {
	var recs []types.DatasetRecord
	_, err := x.Extract(doc, func(r types.DatasetRecord) error {
		recs = append(recs, r)
		return nil
	})
	return recs, err
}
