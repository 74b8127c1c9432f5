// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutputMode(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputMode
		wantErr bool
	}{
		{in: "", want: ModeStructured},
		{in: "vcp", want: ModeStructured},
		{in: "VCP", want: ModeStructured},
		{in: "structured", want: ModeStructured},
		{in: " raw ", want: ModeRaw},
		{in: "bin", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutputMode_Label(t *testing.T) {
	assert.Equal(t, "VCP", ModeStructured.Label())
	assert.Equal(t, "raw", ModeRaw.Label())
}

func TestRecordError(t *testing.T) {
	cause := errors.New("odd length hex string")
	rec := DatasetRecord{Index: 3, DiagnosticAddress: "17", ZDCName: "V03935262CB"}
	err := NewRecordError(ErrDecode, rec, cause)

	assert.ErrorIs(t, err, ErrDecode)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrParse)
	assert.Equal(t, "decode error: record #3 (module 17, V03935262CB): odd length hex string", err.Error())

	bare := NewRecordError(ErrMalformedRecord, rec, nil)
	assert.ErrorIs(t, bare, ErrMalformedRecord)
	assert.Equal(t, "malformed record: record #3 (module 17, V03935262CB)", bare.Error())
}

func TestRunSummary_Complete(t *testing.T) {
	assert.True(t, RunSummary{}.Complete())
	assert.True(t, RunSummary{Total: 2, Converted: 2}.Complete())
	assert.False(t, RunSummary{Total: 2, Converted: 1}.Complete())
}
