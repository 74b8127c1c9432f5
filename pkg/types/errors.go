// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure a run reports wraps exactly one of these.
var (
	ErrInputNotFound   = errors.New("input not found")
	ErrParse           = errors.New("parse error")
	ErrMalformedRecord = errors.New("malformed record")
	ErrDecode          = errors.New("decode error")
	ErrOutputWrite     = errors.New("output write error")
	ErrOutputCollision = errors.New("output collision")
	ErrUnknownMode     = errors.New("unknown output mode")
)

// RecordError ties a failure to the record that caused it.
type RecordError struct {
	Kind   error
	Record DatasetRecord
	Err    error
}

func (e *RecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: record %s: %v", e.Kind, e.Record, e.Err)
	}
	return fmt.Sprintf("%v: record %s", e.Kind, e.Record)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *RecordError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewRecordError builds a RecordError of the given kind.
func NewRecordError(kind error, rec DatasetRecord, err error) *RecordError {
	return &RecordError{Kind: kind, Record: rec, Err: err}
}
