package mssql

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Time layouts per temporal column type. DATETIMEOFFSET keeps its
// zone; the other datetime types come back from the driver in UTC.
const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05.9999999"
)

// ConvertValue turns a scanned database value into its JSON
// representation for a RECORD message.
//
// Driver quirks handled here:
//   - decimal/numeric/money arrive as []byte holding the decimal
//     string; forwarded as json.Number so precision survives
//   - uniqueidentifier arrives as 16 raw bytes in SQL Server's
//     mixed-endian layout
//   - rowversion arrives as 8 big-endian bytes
func ConvertValue(val any, col Column) any {
	if val == nil {
		return nil
	}

	switch v := val.(type) {
	case []byte:
		return convertBytes(v, col)

	case time.Time:
		return formatTime(v, col)

	case bool:
		return v

	case string:
		if col.DataType == "uniqueidentifier" {
			return strings.ToUpper(v)
		}
		return v

	case int64, int32, int, float64, float32:
		return v

	default:
		return fmt.Sprintf("%v", v)
	}
}

// convertBytes handles every column type the driver surfaces as raw
// bytes.
func convertBytes(b []byte, col Column) any {
	switch col.DataType {
	case "timestamp", "rowversion":
		return rowversionToHex(b)

	case "uniqueidentifier":
		return guidString(b)

	case "decimal", "numeric", "money", "smallmoney":
		// The driver renders exact numerics as decimal strings;
		// json.Number passes them through as bare JSON numbers
		return json.Number(string(b))

	case "binary", "varbinary", "image":
		return base64.StdEncoding.EncodeToString(b)

	default:
		return string(b)
	}
}

// guidString renders a uniqueidentifier in canonical upper-case form.
// SQL Server stores the first three GUID groups little-endian, so
// those bytes are swapped before formatting.
func guidString(b []byte) string {
	if len(b) != 16 {
		// ODBC path returns the canonical string already
		return strings.ToUpper(string(b))
	}

	var ordered [16]byte
	ordered[0], ordered[1], ordered[2], ordered[3] = b[3], b[2], b[1], b[0]
	ordered[4], ordered[5] = b[5], b[4]
	ordered[6], ordered[7] = b[7], b[6]
	copy(ordered[8:], b[8:])

	id, err := uuid.FromBytes(ordered[:])
	if err != nil {
		return strings.ToUpper(fmt.Sprintf("%x", b))
	}
	return strings.ToUpper(id.String())
}

// BookmarkValue converts a stored bookmark string back into a typed
// query argument for the replication-key comparison. A plain string
// reaches the server as an nvarchar parameter and relies on implicit
// conversion to the column type, which rejects Z-suffixed timestamps
// for datetime columns and compares rowversion hex as characters
// instead of bytes.
func BookmarkValue(s string, col Column) any {
	switch col.DataType {
	case "date", "time", "datetime", "datetime2", "smalldatetime", "datetimeoffset":
		// RFC3339 covers stored bookmarks and start_date; the short
		// layouts cover date and time column renderings
		for _, layout := range []string{time.RFC3339Nano, dateLayout, timeLayout} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		return s

	case "timestamp", "rowversion":
		v, err := strconv.ParseUint(s, 16, 64)
		if err != nil {
			return s
		}
		raw := make([]byte, 8)
		binary.BigEndian.PutUint64(raw, v)
		return raw

	case "tinyint", "smallint", "int", "bigint":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		return s

	default:
		// Character keys stay strings; exact numerics convert
		// implicitly without loss
		return s
	}
}

// formatTime renders a temporal value per its column type.
func formatTime(t time.Time, col Column) string {
	switch col.DataType {
	case "date":
		return t.Format(dateLayout)
	case "time":
		return t.Format(timeLayout)
	case "datetimeoffset":
		return t.Format(time.RFC3339Nano)
	default:
		// datetime, datetime2, smalldatetime
		return t.UTC().Format(time.RFC3339Nano)
	}
}
