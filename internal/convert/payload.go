// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pdiddy/odis2vcp/pkg/types"
)

var stripper = strings.NewReplacer("0x", "", ",", "")

// Normalize removes 0x prefixes and comma separators from a payload. It
// repeats until nothing changes, so Normalize(Normalize(p)) == Normalize(p)
// even for inputs such as "00xx" where one pass uncovers a new "0x".
func Normalize(payload string) string {
	for {
		next := stripper.Replace(payload)
		if next == payload {
			return next
		}
		payload = next
	}
}

// Decode normalises payload and decodes the hex pairs that remain. An odd
// number of digits or a non-hex character yields types.ErrDecode.
func Decode(payload string) ([]byte, error) {
	data, err := hex.DecodeString(Normalize(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrDecode, err)
	}
	return data, nil
}

// decodeRecord decodes the payload of rec, reporting failures as a
// types.RecordError.
func decodeRecord(rec types.DatasetRecord) ([]byte, error) {
	data, err := hex.DecodeString(Normalize(rec.Payload))
	if err != nil {
		return nil, types.NewRecordError(types.ErrDecode, rec, err)
	}
	return data, nil
}

// DecodedSize returns the number of bytes payload decodes to.
func DecodedSize(payload string) (int, error) {
	data, err := Decode(payload)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}
