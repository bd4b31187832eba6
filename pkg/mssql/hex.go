package mssql

import (
	"encoding/binary"
)

// rowversionToHex converts an 8-byte rowversion/timestamp value to an
// upper-case hex string without leading zeros.
//
// Input format: MS SQL Server timestamp/rowversion (8 bytes, big-endian)
//
// Examples:
//   - []byte{0x00, 0x00, 0x00, 0x00, 0x18, 0x7F, 0x86, 0x3C} → "187F863C"
//   - []byte{0x00, 0x00, 0x00, 0x19, 0xA4, 0xAE, 0x7C, 0x00} → "19A4AE7C00"
//   - []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00} → "00"
func rowversionToHex(data []byte) string {
	if len(data) != 8 {
		if len(data) == 0 {
			return ""
		}
		// Non-8-byte input should not occur for rowversion columns
		return "00"
	}

	value := binary.BigEndian.Uint64(data)
	if value == 0 {
		return "00"
	}

	const hexChars = "0123456789ABCDEF"
	var result [16]byte
	pos := 16

	for value > 0 {
		pos--
		result[pos] = hexChars[value&0x0F]
		value >>= 4
	}

	return string(result[pos:])
}
