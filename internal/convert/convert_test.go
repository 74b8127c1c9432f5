// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/odis2vcp/pkg/types"
)

func sampleRecord() types.DatasetRecord {
	return types.DatasetRecord{
		Index:             0,
		DiagnosticAddress: "17",
		StartAddress:      "0x00000000",
		ZDCName:           "V03935262CB",
		ZDCVersion:        "0001",
		Login:             "20103",
		Label:             "0x00000000 V03935262CB",
		Payload:           "0x0A,0xFF",
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0x0A,0xFF", "0AFF"},
		{"0AFF", "0AFF"},
		{"", ""},
		{",,,", ""},
		{"0x", ""},
		{"00xx1", "1"},
		{"0,x1", "1"},
		{"0X0A", "0X0A"},
		{"DE AD", "DE AD"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalize must be idempotent")
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []byte
		wantErr bool
	}{
		{name: "prefixed and separated", payload: "0x0A,0xFF", want: []byte{0x0A, 0xFF}},
		{name: "bare", payload: "deadBEEF", want: []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		{name: "empty", payload: "", want: []byte{}},
		{name: "odd length", payload: "0x0A,0xF", wantErr: true},
		{name: "non-hex", payload: "0xZZ", wantErr: true},
		{name: "whitespace", payload: "0A FF", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.payload)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrDecode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRawConverter(t *testing.T) {
	var c RawConverter
	rec := sampleRecord()

	data, err := c.Render(rec)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0A, 0xFF}, data)

	assert.Equal(t, "17 0x00000000 V03935262CB - Seat Leon 2016.bin", c.Filename(rec, "Seat Leon 2016"))

	rec.Payload = "0x0A,0xF"
	_, err = c.Render(rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrDecode)
	var recErr *types.RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "V03935262CB", recErr.Record.ZDCName)
}

func TestVCPConverter(t *testing.T) {
	var c VCPConverter
	rec := sampleRecord()

	data, err := c.Render(rec)
	require.NoError(t, err)

	out := string(data)
	assert.True(t, strings.HasPrefix(out, xml.Header), "document starts with the UTF-8 declaration")
	assert.Contains(t, out, "\n<SW-CNT>\n  <IDENT>\n    <LOGIN>20103</LOGIN>\n")
	assert.Contains(t, out, "<GROESSE-DEKOMPRIMIERT>0x2</GROESSE-DEKOMPRIMIERT>")
	assert.Contains(t, out, "<DATEN>0x0A,0xFF</DATEN>")

	var got swContainer
	require.NoError(t, xml.Unmarshal(data, &got))
	assert.Equal(t, ident{Login: "20103", FileID: "V03935262CB", Version: "0001"}, got.Ident)
	require.Len(t, got.Areas, 1)
	assert.Equal(t, dataRegion{
		Name:         "V03935262CB",
		Format:       "DFN_HEX",
		StartAddress: "0x00000000",
		Size:         "0x2",
		Data:         "0x0A,0xFF",
	}, got.Areas[0])

	assert.Equal(t, "17 VCP 0x00000000 V03935262CB - Seat Leon 2016.xml", c.Filename(rec, "Seat Leon 2016"))
}

func TestVCPConverter_ElementOrder(t *testing.T) {
	data, err := VCPConverter{}.Render(sampleRecord())
	require.NoError(t, err)

	order := []string{
		"<SW-CNT>", "<IDENT>", "<LOGIN>", "<DATEIID>", "<VERSION-INHALT>", "</IDENT>",
		"<DATENBEREICHE>", "<DATENBEREICH>", "<DATEN-NAME>", "<DATEN-FORMAT-NAME>",
		"<START-ADR>", "<GROESSE-DEKOMPRIMIERT>", "<DATEN>", "</DATENBEREICH>",
		"</DATENBEREICHE>", "</SW-CNT>",
	}
	pos := 0
	for _, tag := range order {
		i := bytes.Index(data[pos:], []byte(tag))
		require.GreaterOrEqual(t, i, 0, "%s missing or out of order", tag)
		pos += i + len(tag)
	}
}

func TestVCPConverter_EscapesText(t *testing.T) {
	rec := sampleRecord()
	rec.Login = `a<b&"c"`

	data, err := VCPConverter{}.Render(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<LOGIN>a&lt;b&amp;&#34;c&#34;</LOGIN>")

	var got swContainer
	require.NoError(t, xml.Unmarshal(data, &got))
	assert.Equal(t, rec.Login, got.Ident.Login)
}

func TestVCPConverter_SizeMatchesRawLength(t *testing.T) {
	payloads := []string{"", "00", "0x0A,0xFF", "0x01,0x02,0x03", "DEADBEEFCAFE", strings.Repeat("0xAB,", 300)}
	for _, p := range payloads {
		rec := sampleRecord()
		rec.Payload = p

		raw, err := RawConverter{}.Render(rec)
		require.NoError(t, err)

		data, err := VCPConverter{}.Render(rec)
		require.NoError(t, err)
		var got swContainer
		require.NoError(t, xml.Unmarshal(data, &got))

		size, err := DecodedSize(p)
		require.NoError(t, err)
		assert.Equal(t, len(raw), size)
		assert.Equal(t, fmt.Sprintf("0x%x", len(raw)), got.Areas[0].Size)
		assert.Equal(t, p, got.Areas[0].Data, "DATEN keeps the original payload text")
	}
}

func TestVCPConverter_InvalidPayload(t *testing.T) {
	rec := sampleRecord()
	rec.Payload = "0xG1"
	_, err := VCPConverter{}.Render(rec)
	assert.ErrorIs(t, err, types.ErrDecode)
}

func TestFilename_SanitisesSeparators(t *testing.T) {
	rec := sampleRecord()
	rec.Label = "0x0 A/B"
	assert.Equal(t, "17 0x0 A_B - x_y.bin", RawConverter{}.Filename(rec, `x\y`))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	c, ok := r.Get(types.ModeRaw)
	require.True(t, ok)
	assert.Equal(t, types.ModeRaw, c.Format())

	c, ok = r.Get(types.ModeStructured)
	require.True(t, ok)
	assert.Equal(t, types.ModeStructured, c.Format())

	_, ok = r.Get("pdf")
	assert.False(t, ok)
}

func TestWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := NewWriter(dir, true)
	rec := sampleRecord()

	path, err := w.Claim(rec, "a.bin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.bin"), path)

	require.NoError(t, w.Write(rec, path, []byte{1, 2}))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestWriter_Collision(t *testing.T) {
	w := NewWriter(t.TempDir(), true)
	first := sampleRecord()
	second := sampleRecord()
	second.Index = 4

	_, err := w.Claim(first, "a.bin")
	require.NoError(t, err)

	_, err = w.Claim(second, "a.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrOutputCollision)
	assert.Contains(t, err.Error(), "#0")
}

func TestWriter_ConcurrentClaims(t *testing.T) {
	w := NewWriter(t.TempDir(), true)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := sampleRecord()
			rec.Index = i
			if _, err := w.Claim(rec, "same.bin"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestWriter_NoOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	w := NewWriter(dir, false)
	rec := sampleRecord()
	err := w.Write(rec, path, []byte("new"))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrOutputWrite)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))

	require.NoError(t, NewWriter(dir, true).Write(rec, path, []byte("new")))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestWriter_UnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	w := NewWriter(filepath.Join(blocker, "sub"), true)
	err := w.Write(sampleRecord(), filepath.Join(blocker, "sub", "a.bin"), []byte{1})
	assert.ErrorIs(t, err, types.ErrOutputWrite)
}
