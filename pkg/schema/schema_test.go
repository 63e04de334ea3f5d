package schema

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataworks/strata/pkg/errors"
)

type weekday int

const (
	monday weekday = iota
	tuesday
)

func (d weekday) MarshalText() ([]byte, error) {
	if d == tuesday {
		return []byte("tuesday"), nil
	}
	return []byte("monday"), nil
}

func (d *weekday) UnmarshalText(text []byte) error {
	if string(text) == "tuesday" {
		*d = tuesday
	} else {
		*d = monday
	}
	return nil
}

type order struct {
	ID        int64
	Name      string
	Count     int32
	Ratio     float64
	Active    bool
	Note      *string
	Day       weekday
	Payload   []byte
	CreatedAt time.Time
	Key       uuid.UUID
	Amount    decimal.Decimal
	internal  string
}

func TestMapNullabilityRules(t *testing.T) {
	// Plain value types are never nullable.
	typ, nullable := Map(KindInt32, false)
	assert.Equal(t, TypeInt32, typ)
	assert.False(t, nullable)

	// Wrapped value types are nullable.
	_, nullable = Map(KindInt64, true)
	assert.True(t, nullable)

	// Byte sequences are always nullable, wrapper or not.
	typ, nullable = Map(KindBytes, false)
	assert.Equal(t, TypeBytes, typ)
	assert.True(t, nullable)
	_, nullable = Map(KindBytes, true)
	assert.True(t, nullable)

	// Enums project to string and default to non-nullable.
	typ, nullable = Map(KindEnum, false)
	assert.Equal(t, TypeString, typ)
	assert.False(t, nullable)
	_, nullable = Map(KindEnum, true)
	assert.True(t, nullable)
}

func TestMapStorageTypes(t *testing.T) {
	cases := map[Kind]Type{
		KindInt32:       TypeInt32,
		KindInt64:       TypeInt64,
		KindFloat32:     TypeFloat32,
		KindFloat64:     TypeFloat64,
		KindBool:        TypeBool,
		KindDecimal:     TypeDecimal,
		KindTimestamp:   TypeTimestamp,
		KindTimestampTZ: TypeTimestampTZ,
		KindUUID:        TypeUUID,
		KindString:      TypeString,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.StorageType(), "kind %s", kind)
	}
}

func TestDescribeDeclarationOrder(t *testing.T) {
	fields, err := Describe(reflect.TypeOf(order{}))
	require.NoError(t, err)

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{
		"ID", "Name", "Count", "Ratio", "Active", "Note",
		"Day", "Payload", "CreatedAt", "Key", "Amount",
	}, names)
}

func TestDescribeKinds(t *testing.T) {
	fields, err := Describe(reflect.TypeOf(order{}))
	require.NoError(t, err)

	byName := make(map[string]Field, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}

	assert.Equal(t, KindInt64, byName["ID"].Kind)
	assert.Equal(t, KindInt32, byName["Count"].Kind)
	assert.Equal(t, KindString, byName["Name"].Kind)
	assert.Equal(t, KindFloat64, byName["Ratio"].Kind)
	assert.Equal(t, KindBool, byName["Active"].Kind)
	assert.Equal(t, KindEnum, byName["Day"].Kind)
	assert.Equal(t, KindBytes, byName["Payload"].Kind)
	assert.Equal(t, KindTimestamp, byName["CreatedAt"].Kind)
	assert.Equal(t, KindUUID, byName["Key"].Kind)
	assert.Equal(t, KindDecimal, byName["Amount"].Kind)

	assert.False(t, byName["Name"].Nullable)
	assert.True(t, byName["Note"].Nullable)
}

func TestDescribeTagHandling(t *testing.T) {
	type tagged struct {
		ID      int64     `column:"id"`
		Skipped string    `column:"-"`
		When    time.Time `column:"when,tz"`
	}

	fields, err := Describe(reflect.TypeOf(tagged{}))
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "id", fields[0].Name)
	assert.Equal(t, "when", fields[1].Name)
	assert.Equal(t, KindTimestampTZ, fields[1].Kind)
}

func TestDescribeNoEligibleFields(t *testing.T) {
	type empty struct {
		hidden int
	}

	_, err := Describe(reflect.TypeOf(empty{}))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestInferColumnOrderAndNullability(t *testing.T) {
	s, err := Infer(reflect.TypeOf(order{}))
	require.NoError(t, err)
	require.Len(t, s.Columns, 11)

	col, _, ok := s.Lookup("payload")
	require.True(t, ok)
	assert.Equal(t, TypeBytes, col.Type)
	assert.True(t, col.Nullable, "byte sequences are always nullable")

	col, _, ok = s.Lookup("day")
	require.True(t, ok)
	assert.Equal(t, TypeString, col.Type)
	assert.False(t, col.Nullable, "enums default to non-nullable")

	col, _, ok = s.Lookup("note")
	require.True(t, ok)
	assert.True(t, col.Nullable)
}

func TestSchemaValidation(t *testing.T) {
	_, err := New()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))

	_, err = New(
		Column{Name: "id", Type: TypeInt64},
		Column{Name: "ID", Type: TypeInt32},
	)
	require.Error(t, err, "duplicate detection is case-insensitive")

	_, err = New(Column{Name: "id", Type: TypeInt64})
	assert.NoError(t, err)
}

type provided struct {
	Whatever string
}

func (provided) StorageSchema() (*Schema, error) {
	return New(Column{Name: "custom", Type: TypeInt64})
}

func TestForTypePrefersProvider(t *testing.T) {
	s, err := ForType(reflect.TypeOf(provided{}))
	require.NoError(t, err)
	require.Len(t, s.Columns, 1)
	assert.Equal(t, "custom", s.Columns[0].Name)
}

func TestForTypeFallsBackToInference(t *testing.T) {
	s, err := ForType(reflect.TypeOf(order{}))
	require.NoError(t, err)
	assert.Len(t, s.Columns, 11)
}
