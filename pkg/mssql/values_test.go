package mssql

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

// TestConvertValueBytes checks the byte-slice conversions the driver
// hands back for non-string column types.
func TestConvertValueBytes(t *testing.T) {
	tests := []struct {
		name string
		col  Column
		val  []byte
		want any
	}{
		{
			"decimal as number literal",
			Column{DataType: "decimal", Precision: 18, Scale: 2},
			[]byte("1234.56"),
			json.Number("1234.56"),
		},
		{
			"numeric as number literal",
			Column{DataType: "numeric", Precision: 10, Scale: 4},
			[]byte("-0.0001"),
			json.Number("-0.0001"),
		},
		{
			"money as number literal",
			Column{DataType: "money"},
			[]byte("922337203685477.5807"),
			json.Number("922337203685477.5807"),
		},
		{
			"varbinary as base64",
			Column{DataType: "varbinary", Length: 8},
			[]byte{0xDE, 0xAD, 0xBE, 0xEF},
			"3q2+7w==",
		},
		{
			"image as base64",
			Column{DataType: "image"},
			[]byte{0x00, 0x01},
			"AAE=",
		},
		{
			"rowversion as hex",
			Column{DataType: "rowversion"},
			[]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x07, 0xD2},
			"7D2",
		},
		{
			"timestamp alias as hex",
			Column{DataType: "timestamp"},
			[]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00},
			"10000",
		},
		{
			"text column bytes as string",
			Column{DataType: "text"},
			[]byte("hello"),
			"hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertValue(tt.val, tt.col)
			if got != tt.want {
				t.Errorf("ConvertValue() = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

// TestConvertValueGUID checks the mixed-endian byte swap applied to
// uniqueidentifier values returned as raw 16-byte slices.
func TestConvertValueGUID(t *testing.T) {
	// On the wire the first three groups are little-endian.
	raw := []byte{
		0x33, 0x22, 0x11, 0x00, // 00112233
		0x55, 0x44, // 4455
		0x77, 0x66, // 6677
		0x88, 0x99, // 8899
		0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF,
	}
	col := Column{DataType: "uniqueidentifier"}

	got := ConvertValue(raw, col)
	want := "00112233-4455-6677-8899-AABBCCDDEEFF"
	if got != want {
		t.Errorf("guid = %v, want %s", got, want)
	}
}

// TestConvertValueGUIDString checks that string GUIDs are uppercased.
func TestConvertValueGUIDString(t *testing.T) {
	col := Column{DataType: "uniqueidentifier"}
	got := ConvertValue("00112233-4455-6677-8899-aabbccddeeff", col)
	if got != "00112233-4455-6677-8899-AABBCCDDEEFF" {
		t.Errorf("guid string = %v", got)
	}
}

// TestConvertValueTime checks temporal formatting per column type.
func TestConvertValueTime(t *testing.T) {
	loc := time.FixedZone("", 2*3600)

	tests := []struct {
		name string
		col  Column
		val  time.Time
		want string
	}{
		{
			"date drops time part",
			Column{DataType: "date"},
			time.Date(2023, 4, 15, 0, 0, 0, 0, time.UTC),
			"2023-04-15",
		},
		{
			"time drops date part",
			Column{DataType: "time"},
			time.Date(1, 1, 1, 13, 45, 30, 500000000, time.UTC),
			"13:45:30.5",
		},
		{
			"datetime in UTC",
			Column{DataType: "datetime"},
			time.Date(2023, 4, 15, 13, 45, 30, 0, time.UTC),
			"2023-04-15T13:45:30Z",
		},
		{
			"datetimeoffset keeps zone",
			Column{DataType: "datetimeoffset"},
			time.Date(2023, 4, 15, 13, 45, 30, 0, loc),
			"2023-04-15T13:45:30+02:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertValue(tt.val, tt.col)
			if got != tt.want {
				t.Errorf("ConvertValue() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestConvertValuePassthrough(t *testing.T) {
	if got := ConvertValue(nil, Column{DataType: "int"}); got != nil {
		t.Errorf("nil = %v, want nil", got)
	}
	if got := ConvertValue(int64(42), Column{DataType: "bigint"}); got != int64(42) {
		t.Errorf("int64 = %v, want 42", got)
	}
	if got := ConvertValue(true, Column{DataType: "bit"}); got != true {
		t.Errorf("bool = %v, want true", got)
	}
	if got := ConvertValue(3.14, Column{DataType: "float"}); got != 3.14 {
		t.Errorf("float = %v, want 3.14", got)
	}
	if got := ConvertValue("plain", Column{DataType: "nvarchar", Length: 10}); got != "plain" {
		t.Errorf("string = %v, want plain", got)
	}
}

// TestBookmarkValue checks that stored bookmarks bind as typed query
// arguments. Sending them as strings would force a server-side
// nvarchar conversion, which rejects Z-suffixed timestamps for
// datetime columns and compares rowversion hex character-wise.
func TestBookmarkValue(t *testing.T) {
	tests := []struct {
		name string
		col  Column
		in   string
		want any
	}{
		{
			"datetime bookmark parses to time",
			Column{DataType: "datetime"},
			"2023-04-15T13:45:30Z",
			time.Date(2023, 4, 15, 13, 45, 30, 0, time.UTC),
		},
		{
			"datetime2 with fractional seconds",
			Column{DataType: "datetime2"},
			"2023-04-15T13:45:30.1234567Z",
			time.Date(2023, 4, 15, 13, 45, 30, 123456700, time.UTC),
		},
		{
			"date column accepts start_date format",
			Column{DataType: "date"},
			"2023-01-01T00:00:00Z",
			time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"date column accepts short form",
			Column{DataType: "date"},
			"2023-04-15",
			time.Date(2023, 4, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			"rowversion hex decodes to bytes",
			Column{DataType: "rowversion"},
			"7D2",
			[]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x07, 0xD2},
		},
		{
			"rowversion zero",
			Column{DataType: "rowversion"},
			"00",
			[]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			"bigint bookmark parses to int64",
			Column{DataType: "bigint"},
			"9007199254740993",
			int64(9007199254740993),
		},
		{
			"decimal stays a string literal",
			Column{DataType: "decimal", Precision: 18, Scale: 2},
			"1234.56",
			"1234.56",
		},
		{
			"character key stays a string",
			Column{DataType: "nvarchar", Length: 50},
			"order-0042",
			"order-0042",
		},
		{
			"unparseable temporal falls back to string",
			Column{DataType: "datetime"},
			"not-a-time",
			"not-a-time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BookmarkValue(tt.in, tt.col)

			switch want := tt.want.(type) {
			case time.Time:
				gotTime, ok := got.(time.Time)
				if !ok || !gotTime.Equal(want) {
					t.Errorf("BookmarkValue() = %v (%T), want %v", got, got, want)
				}
			case []byte:
				gotBytes, ok := got.([]byte)
				if !ok || !bytes.Equal(gotBytes, want) {
					t.Errorf("BookmarkValue() = % X (%T), want % X", got, got, want)
				}
			default:
				if got != tt.want {
					t.Errorf("BookmarkValue() = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
				}
			}
		})
	}
}

// A typed rowversion bookmark must round-trip through the hex
// rendering used for RECORD values and state.
func TestBookmarkValueRowversionRoundtrip(t *testing.T) {
	col := Column{DataType: "rowversion"}
	raw := []byte{0x00, 0x00, 0x00, 0x19, 0xA4, 0xAE, 0x7C, 0x00}

	rendered := rowversionToHex(raw)
	got := BookmarkValue(rendered, col)

	gotBytes, ok := got.([]byte)
	if !ok || !bytes.Equal(gotBytes, raw) {
		t.Errorf("roundtrip % X → %s → %v", raw, rendered, got)
	}
}

// TestRowversionToHex checks the canonical rowversion rendering:
// uppercase hex with leading zeros stripped.
func TestRowversionToHex(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"small counter", []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x07, 0xD2}, "7D2"},
		{"high byte set", []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, "100000000000000"},
		{"all zeros", []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, "00"},
		{"all ones", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, "FFFFFFFFFFFFFFFF"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rowversionToHex(tt.in); got != tt.want {
				t.Errorf("rowversionToHex(% X) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
