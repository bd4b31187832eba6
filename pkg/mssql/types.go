package mssql

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/queuebridge/tap-mssql/pkg/singer"
)

// Type mapping for SQL Server 2012+
//
// SQL Server Type     JSON Schema            HD additions
// ─────────────────────────────────────────────────────────────────
// TINYINT..BIGINT     integer                minimum/maximum bounds
// DECIMAL, NUMERIC    integer (scale 0)      multipleOf 10^-scale,
//                     number  (scale > 0)    exact min/max
// MONEY, SMALLMONEY   number                 multipleOf 0.0001
// FLOAT, REAL         number                 x-sql-datatype
// BIT                 boolean
// CHAR/VARCHAR family string                 maxLength
// DATE                string, date
// TIME                string, time
// DATETIME family     string, date-time
// UNIQUEIDENTIFIER    string                 format uuid
// BINARY family       string                 contentEncoding base64
// TIMESTAMP/ROWVERSION string                hex, maxLength 16
// XML, SQL_VARIANT    string

// Column describes one column as reported by INFORMATION_SCHEMA.
type Column struct {
	Name         string
	DataType     string // lower-case base type, e.g. "nvarchar"
	Length       int    // character maximum length, -1 for MAX
	Precision    int
	Scale        int
	Nullable     bool
	IsPrimaryKey bool
}

// SQLDatatype renders the column type the way DDL spells it:
// "nvarchar(100)", "varbinary(max)", "decimal(18,2)", "int".
func (c Column) SQLDatatype() string {
	switch c.DataType {
	case "char", "nchar", "varchar", "nvarchar", "binary", "varbinary":
		if c.Length == -1 {
			return c.DataType + "(max)"
		}
		if c.Length > 0 {
			return fmt.Sprintf("%s(%d)", c.DataType, c.Length)
		}
		return c.DataType
	case "decimal", "numeric":
		return fmt.Sprintf("%s(%d,%d)", c.DataType, c.Precision, c.Scale)
	case "float", "time", "datetime2", "datetimeoffset":
		// Precision-bearing but commonly written bare; keep bare form
		return c.DataType
	default:
		return c.DataType
	}
}

// ParseSQLDatatype is the inverse of SQLDatatype. It is used when the
// sync phase rebuilds column information from catalog metadata.
//
// Examples:
//   - "int" → {DataType: "int"}
//   - "nvarchar(100)" → {DataType: "nvarchar", Length: 100}
//   - "varbinary(max)" → {DataType: "varbinary", Length: -1}
//   - "decimal(18,2)" → {DataType: "decimal", Precision: 18, Scale: 2}
func ParseSQLDatatype(s string) Column {
	s = strings.ToLower(strings.TrimSpace(s))

	col := Column{DataType: s}

	idx := strings.Index(s, "(")
	if idx == -1 {
		return col
	}

	col.DataType = strings.TrimSpace(s[:idx])
	params := strings.TrimSuffix(s[idx+1:], ")")

	if strings.TrimSpace(params) == "max" {
		col.Length = -1
		return col
	}

	if strings.Contains(params, ",") {
		parts := strings.SplitN(params, ",", 2)
		col.Precision, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
		col.Scale, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
		return col
	}

	n, _ := strconv.Atoi(strings.TrimSpace(params))
	switch col.DataType {
	case "decimal", "numeric":
		col.Precision = n
	default:
		col.Length = n
	}
	return col
}

// JSONSchema maps the column to its JSON Schema property. When hd is
// set the schema carries enough detail for a target to reconstruct
// the source column exactly.
func (c Column) JSONSchema(hd bool) *singer.Schema {
	var s *singer.Schema
	if hd {
		s = c.hdSchema()
	} else {
		s = c.defaultSchema()
	}

	if c.Nullable {
		s.WithNull()
	}
	return s
}

// defaultSchema is the baseline mapping: coarse JSON types only.
func (c Column) defaultSchema() *singer.Schema {
	switch c.DataType {
	case "tinyint", "smallint", "int", "bigint":
		return &singer.Schema{Type: []string{"integer"}}

	case "decimal", "numeric":
		// Scale 0 means the column holds whole numbers
		if c.Scale == 0 {
			return &singer.Schema{Type: []string{"integer"}}
		}
		return &singer.Schema{Type: []string{"number"}}

	case "money", "smallmoney", "float", "real":
		return &singer.Schema{Type: []string{"number"}}

	case "bit":
		return &singer.Schema{Type: []string{"boolean"}}

	case "date":
		return &singer.Schema{Type: []string{"string"}, Format: "date"}

	case "time":
		return &singer.Schema{Type: []string{"string"}, Format: "time"}

	case "datetime", "datetime2", "smalldatetime", "datetimeoffset":
		return &singer.Schema{Type: []string{"string"}, Format: "date-time"}

	default:
		// char/varchar family, uniqueidentifier, xml, binary,
		// rowversion, sql_variant and anything unknown
		return &singer.Schema{Type: []string{"string"}}
	}
}

// hdSchema is the higher-definition mapping: bounds, multipleOf and
// length constraints that make the type round-trippable.
func (c Column) hdSchema() *singer.Schema {
	s := c.defaultSchema()
	s.SQLDatatype = c.SQLDatatype()

	switch c.DataType {
	case "tinyint":
		s.Minimum, s.Maximum = json.Number("0"), json.Number("255")
	case "smallint":
		s.Minimum, s.Maximum = json.Number("-32768"), json.Number("32767")
	case "int":
		s.Minimum, s.Maximum = json.Number("-2147483648"), json.Number("2147483647")
	case "bigint":
		s.Minimum, s.Maximum = json.Number("-9223372036854775808"), json.Number("9223372036854775807")

	case "decimal", "numeric":
		if c.Scale > 0 {
			s.MultipleOf = decimalMultipleOf(c.Scale)
		}
		if c.Precision > 0 {
			max := decimalBound(c.Precision, c.Scale)
			s.Maximum = max
			s.Minimum = json.Number("-" + string(max))
		}

	case "money":
		s.MultipleOf = json.Number("0.0001")
		s.Minimum = json.Number("-922337203685477.5808")
		s.Maximum = json.Number("922337203685477.5807")
	case "smallmoney":
		s.MultipleOf = json.Number("0.0001")
		s.Minimum = json.Number("-214748.3648")
		s.Maximum = json.Number("214748.3647")

	case "char", "nchar", "varchar", "nvarchar":
		if c.Length > 0 {
			n := c.Length
			s.MaxLength = &n
		}

	case "binary", "varbinary", "image":
		s.ContentEncoding = "base64"
		if c.Length > 0 {
			n := c.Length
			s.MaxLength = &n
		}

	case "uniqueidentifier":
		s.Format = "uuid"

	case "timestamp", "rowversion":
		// Emitted as upper-case hex without leading zeros
		n := 16
		s.MaxLength = &n
	}

	return s
}

// decimalMultipleOf returns 10^-scale as an exact decimal literal.
func decimalMultipleOf(scale int) json.Number {
	if scale <= 0 {
		return json.Number("1")
	}
	return json.Number("0." + strings.Repeat("0", scale-1) + "1")
}

// decimalBound returns the largest value DECIMAL(p,s) can hold:
// (p-s) nines, then a point and s nines.
func decimalBound(precision, scale int) json.Number {
	intDigits := precision - scale
	if intDigits <= 0 {
		intDigits = 0
	}

	var b strings.Builder
	if intDigits == 0 {
		b.WriteString("0")
	} else {
		b.WriteString(strings.Repeat("9", intDigits))
	}
	if scale > 0 {
		b.WriteString(".")
		b.WriteString(strings.Repeat("9", scale))
	}
	return json.Number(b.String())
}
