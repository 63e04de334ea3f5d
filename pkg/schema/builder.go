package schema

import (
	"encoding"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/strataworks/strata/pkg/errors"
)

// Provider supplies an explicit columnar schema for a record type. When a
// record type implements Provider, schema construction defers to it
// unconditionally and reflective field discovery is skipped.
type Provider interface {
	StorageSchema() (*Schema, error)
}

// Field is the descriptor of one eligible record field. Descriptors are
// built once per type in declaration order and are immutable afterwards.
type Field struct {
	Name     string       // column name (tag override or Go field name)
	Index    int          // struct field index
	Kind     Kind         // declared semantic kind
	Nullable bool         // declared through a pointer
	GoType   reflect.Type // field type with the pointer stripped
}

// Column returns the column definition this field maps to.
func (f Field) Column() Column {
	t, nullable := Map(f.Kind, f.Nullable)
	return Column{Name: f.Name, Type: t, Nullable: nullable}
}

var (
	timeType          = reflect.TypeOf(time.Time{})
	decimalType       = reflect.TypeOf(decimal.Decimal{})
	uuidType          = reflect.TypeOf(uuid.UUID{})
	providerType      = reflect.TypeOf((*Provider)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// Describe returns the field descriptors of a record type in declaration
// order. A field is eligible when it is exported, not embedded and not
// excluded via a `column:"-"` tag. It fails with a schema error when the
// type has no eligible fields.
func Describe(t reflect.Type) ([]Field, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.Newf(errors.ErrorTypeSchema, "record type must be a struct, got %s", t.Kind())
	}

	fields := make([]Field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" || sf.Anonymous {
			continue
		}

		name := sf.Name
		var tz bool
		if tag, ok := sf.Tag.Lookup("column"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "tz" {
					tz = true
				}
			}
		}

		ft := sf.Type
		nullable := ft.Kind() == reflect.Pointer
		if nullable {
			ft = ft.Elem()
		}

		fields = append(fields, Field{
			Name:     name,
			Index:    i,
			Kind:     kindOf(ft, tz),
			Nullable: nullable,
			GoType:   ft,
		})
	}

	if len(fields) == 0 {
		return nil, errors.Newf(errors.ErrorTypeSchema, "no eligible fields found on type %s", t)
	}
	return fields, nil
}

// kindOf maps a Go type (pointer already stripped) to its semantic kind.
// Well-known value types are matched first since they also implement
// encoding.TextMarshaler.
func kindOf(t reflect.Type, tz bool) Kind {
	switch t {
	case timeType:
		if tz {
			return KindTimestampTZ
		}
		return KindTimestamp
	case decimalType:
		return KindDecimal
	case uuidType:
		return KindUUID
	}

	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return KindBytes
	}

	// A named type carrying its own text form is an enumeration: it is
	// stored by member name and recovered via encoding.TextUnmarshaler.
	if t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType) {
		return KindEnum
	}

	switch t.Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return KindInt32
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt64
	case reflect.Float32:
		return KindFloat32
	case reflect.Float64:
		return KindFloat64
	default:
		return KindString
	}
}

// Infer builds a columnar schema from a record type's field descriptors.
// Column order equals field declaration order.
func Infer(t reflect.Type) (*Schema, error) {
	fields, err := Describe(t)
	if err != nil {
		return nil, err
	}
	columns := make([]Column, len(fields))
	for i, f := range fields {
		columns[i] = f.Column()
	}
	return New(columns...)
}

// ForType resolves the schema for a record type: an explicit Provider
// implementation wins, otherwise the schema is inferred.
func ForType(t reflect.Type) (*Schema, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Implements(providerType) {
		return reflect.Zero(t).Interface().(Provider).StorageSchema()
	}
	if reflect.PointerTo(t).Implements(providerType) {
		return reflect.New(t).Interface().(Provider).StorageSchema()
	}
	return Infer(t)
}

// LookupField finds a descriptor by column name, case-insensitively.
func LookupField(fields []Field, name string) (Field, bool) {
	for _, f := range fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}
