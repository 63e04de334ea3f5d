// Package schema provides columnar schema construction for Strata.
// A schema is an ordered list of named, typed, nullable column definitions.
// It is either inferred from a record type's exported fields or supplied
// explicitly by a type implementing the Provider interface.
package schema

import (
	"strings"

	"github.com/strataworks/strata/pkg/errors"
)

// Type is the storage type of a column.
type Type int

const (
	// TypeInt32 is a 32-bit signed integer column
	TypeInt32 Type = iota
	// TypeInt64 is a 64-bit signed integer column
	TypeInt64
	// TypeFloat32 is a 32-bit floating point column
	TypeFloat32
	// TypeFloat64 is a 64-bit floating point column
	TypeFloat64
	// TypeBool is a boolean column
	TypeBool
	// TypeDecimal is a fixed-precision decimal column
	TypeDecimal
	// TypeTimestamp is a timestamp column without an offset
	TypeTimestamp
	// TypeTimestampTZ is a timestamp column with an offset
	TypeTimestampTZ
	// TypeUUID is a unique-identifier column
	TypeUUID
	// TypeBytes is a raw byte sequence column
	TypeBytes
	// TypeString is a UTF-8 string column
	TypeString
)

// String returns the lowercase name of the storage type.
func (t Type) String() string {
	switch t {
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeBool:
		return "bool"
	case TypeDecimal:
		return "decimal"
	case TypeTimestamp:
		return "timestamp"
	case TypeTimestampTZ:
		return "timestamptz"
	case TypeUUID:
		return "uuid"
	case TypeBytes:
		return "bytes"
	case TypeString:
		return "string"
	default:
		return "unknown"
	}
}

// Column defines one column of a columnar schema.
type Column struct {
	Name     string
	Type     Type
	Nullable bool
}

// Schema is an ordered sequence of column definitions. Column order is
// load-bearing: row groups are written positionally and the same order must
// be used on write and read of one logical schema.
type Schema struct {
	Columns []Column
}

// New builds a schema from the given columns and validates it.
func New(columns ...Column) (*Schema, error) {
	s := &Schema{Columns: columns}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the schema invariants: at least one column and no
// duplicate names (case-insensitive).
func (s *Schema) Validate() error {
	if s == nil || len(s.Columns) == 0 {
		return errors.New(errors.ErrorTypeSchema, "schema must contain at least one column")
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for _, col := range s.Columns {
		if col.Name == "" {
			return errors.New(errors.ErrorTypeSchema, "column name must not be empty")
		}
		key := strings.ToLower(col.Name)
		if _, ok := seen[key]; ok {
			return errors.Newf(errors.ErrorTypeSchema, "duplicate column name %q", col.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Lookup returns the column with the given name (case-insensitive) and its
// position in the schema.
func (s *Schema) Lookup(name string) (Column, int, bool) {
	for i, col := range s.Columns {
		if strings.EqualFold(col.Name, name) {
			return col, i, true
		}
	}
	return Column{}, -1, false
}

// Names returns the column names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}
