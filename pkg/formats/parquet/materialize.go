package parquet

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/strataworks/strata/pkg/schema"
)

// binding pairs a schema column with the record field that feeds it.
// Columns with no same-named field on the record type are not bound and are
// skipped entirely during materialization.
type binding struct {
	column schema.Column
	field  schema.Field
}

// bind matches schema columns to record fields by name, case-insensitively,
// preserving schema column order.
func bind(s *schema.Schema, fields []schema.Field) []binding {
	bindings := make([]binding, 0, len(s.Columns))
	for _, col := range s.Columns {
		if f, ok := schema.LookupField(fields, col.Name); ok {
			bindings = append(bindings, binding{column: col, field: f})
		}
	}
	return bindings
}

// materialize produces one typed Arrow array per bound column from the given
// records. Per-cell coercion failures are recovered silently with the storage
// type's zero value; materialization never aborts because one cell failed to
// convert. The caller must release the returned record.
func materialize(items reflect.Value, bindings []binding) arrow.Record {
	builder := array.NewRecordBuilder(memory.DefaultAllocator, arrowSchema(bindings))
	defer builder.Release()

	n := items.Len()
	for i := 0; i < n; i++ {
		item := items.Index(i)
		for item.Kind() == reflect.Pointer && !item.IsNil() {
			item = item.Elem()
		}
		for j, b := range bindings {
			appendValue(builder.Field(j), b.column, extract(item, b.field))
		}
	}

	return builder.NewRecord()
}

// extract reads a field value from a record, returning nil when the record
// itself or the field's pointer is nil.
func extract(item reflect.Value, f schema.Field) interface{} {
	if item.Kind() == reflect.Pointer || item.Kind() != reflect.Struct {
		return nil
	}
	v := item.Field(f.Index)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Slice && v.IsNil() {
		return nil
	}
	return v.Interface()
}

// appendValue coerces one cell into the column's builder. Coercion order:
// nil handling, enum-to-text projection, exact match, numeric
// widening/narrowing or stringification, generic conversion, and finally
// silent zero-value substitution.
func appendValue(bld array.Builder, col schema.Column, v interface{}) {
	if v == nil {
		if col.Nullable {
			bld.AppendNull()
		} else {
			appendZero(bld, col.Type)
		}
		return
	}

	switch b := bld.(type) {
	case *array.Int32Builder:
		if n, ok := toInt64(v); ok {
			b.Append(int32(n))
		} else {
			b.Append(0)
		}

	case *array.Int64Builder:
		if n, ok := toInt64(v); ok {
			b.Append(n)
		} else {
			b.Append(0)
		}

	case *array.Float32Builder:
		if f, ok := toFloat64(v); ok {
			b.Append(float32(f))
		} else {
			b.Append(0)
		}

	case *array.Float64Builder:
		if f, ok := toFloat64(v); ok {
			b.Append(f)
		} else {
			b.Append(0)
		}

	case *array.BooleanBuilder:
		if bv, ok := v.(bool); ok {
			b.Append(bv)
		} else {
			b.Append(false)
		}

	case *array.StringBuilder:
		b.Append(stringify(v))

	case *array.BinaryBuilder:
		switch bv := v.(type) {
		case []byte:
			b.Append(bv)
		case string:
			b.Append([]byte(bv))
		default:
			if col.Nullable {
				b.AppendNull()
			} else {
				b.Append(nil)
			}
		}

	case *array.TimestampBuilder:
		if t, ok := toTime(v); ok {
			b.Append(arrow.Timestamp(t.UTC().UnixMicro()))
		} else {
			b.Append(0)
		}

	case *array.FixedSizeBinaryBuilder:
		if id, ok := toUUID(v); ok {
			b.Append(id[:])
		} else {
			b.Append(make([]byte, 16))
		}

	case *array.Decimal128Builder:
		if num, ok := toDecimal128(v); ok {
			b.Append(num)
		} else {
			b.Append(decimal128.Num{})
		}

	default:
		bld.AppendNull()
	}
}

// appendZero appends the storage type's zero value: numeric zero, false,
// empty string, the epoch for timestamps, the nil UUID, and the empty
// byte sequence.
func appendZero(bld array.Builder, t schema.Type) {
	switch b := bld.(type) {
	case *array.Int32Builder:
		b.Append(0)
	case *array.Int64Builder:
		b.Append(0)
	case *array.Float32Builder:
		b.Append(0)
	case *array.Float64Builder:
		b.Append(0)
	case *array.BooleanBuilder:
		b.Append(false)
	case *array.StringBuilder:
		b.Append("")
	case *array.BinaryBuilder:
		b.Append(nil)
	case *array.TimestampBuilder:
		b.Append(0)
	case *array.FixedSizeBinaryBuilder:
		b.Append(make([]byte, 16))
	case *array.Decimal128Builder:
		b.Append(decimal128.Num{})
	default:
		bld.AppendNull()
	}
}

// stringify projects a value onto a string column: enum members by their
// textual name, everything else via the default text conversion.
func stringify(v interface{}) string {
	switch sv := v.(type) {
	case string:
		return sv
	case encoding.TextMarshaler:
		if text, err := sv.MarshalText(); err == nil {
			return string(text)
		}
		return ""
	case fmt.Stringer:
		return sv.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		n64, err := strconv.ParseInt(n, 10, 64)
		return n64, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch f := v.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	case int:
		return float64(f), true
	case int32:
		return float64(f), true
	case int64:
		return float64(f), true
	case decimal.Decimal:
		return f.InexactFloat64(), true
	case string:
		f64, err := strconv.ParseFloat(f, 64)
		return f64, err == nil
	}
	if n, ok := toInt64(v); ok {
		return float64(n), true
	}
	return 0, false
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

func toUUID(v interface{}) (uuid.UUID, bool) {
	switch id := v.(type) {
	case uuid.UUID:
		return id, true
	case [16]byte:
		return uuid.UUID(id), true
	case []byte:
		parsed, err := uuid.FromBytes(id)
		return parsed, err == nil
	case string:
		parsed, err := uuid.Parse(id)
		return parsed, err == nil
	}
	return uuid.UUID{}, false
}

func toDecimal128(v interface{}) (decimal128.Num, bool) {
	var s string
	switch d := v.(type) {
	case decimal.Decimal:
		s = d.String()
	case string:
		s = d
	case float32:
		s = strconv.FormatFloat(float64(d), 'f', -1, 32)
	case float64:
		s = strconv.FormatFloat(d, 'f', -1, 64)
	default:
		if n, ok := toInt64(v); ok {
			s = strconv.FormatInt(n, 10)
		} else {
			return decimal128.Num{}, false
		}
	}
	num, err := decimal128.FromString(s, decimalPrecision, decimalScale)
	if err != nil {
		return decimal128.Num{}, false
	}
	return num, true
}
