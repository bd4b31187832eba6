package singer

import (
	"encoding/json"
)

// Schema is a minimal JSON Schema representation, covering what a SQL
// column can describe. Numeric bounds use json.Number so that 64-bit
// integer limits survive encoding without float rounding.
type Schema struct {
	Type            []string           `json:"type,omitempty"`
	Format          string             `json:"format,omitempty"`
	Properties      map[string]*Schema `json:"properties,omitempty"`
	Minimum         json.Number        `json:"minimum,omitempty"`
	Maximum         json.Number        `json:"maximum,omitempty"`
	MultipleOf      json.Number        `json:"multipleOf,omitempty"`
	MaxLength       *int               `json:"maxLength,omitempty"`
	ContentEncoding string             `json:"contentEncoding,omitempty"`

	// Original database type, carried as an annotation so targets can
	// reconstruct the source column exactly.
	SQLDatatype string `json:"x-sql-datatype,omitempty"`
}

// ObjectSchema returns an object schema with the given properties.
func ObjectSchema(properties map[string]*Schema) *Schema {
	return &Schema{
		Type:       []string{"object"},
		Properties: properties,
	}
}

// WithNull marks the schema as nullable by appending "null" to its
// type list. Returns the receiver for chaining.
func (s *Schema) WithNull() *Schema {
	for _, t := range s.Type {
		if t == "null" {
			return s
		}
	}
	s.Type = append(s.Type, "null")
	return s
}

// IsNullable reports whether "null" is an allowed type.
func (s *Schema) IsNullable() bool {
	for _, t := range s.Type {
		if t == "null" {
			return true
		}
	}
	return false
}

// HasType reports whether the schema allows the given JSON type.
func (s *Schema) HasType(name string) bool {
	for _, t := range s.Type {
		if t == name {
			return true
		}
	}
	return false
}
