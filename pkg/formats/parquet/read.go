package parquet

import (
	"bytes"
	"context"
	"encoding"
	"reflect"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/strataworks/strata/pkg/errors"
	"github.com/strataworks/strata/pkg/pool"
	"github.com/strataworks/strata/pkg/schema"
)

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// Unmarshal parses a Parquet buffer's first row group into out, a non-nil
// pointer to a slice of records. Files with more than one row group expose
// only the first; this is a documented limitation, not an error. Field
// coercion failures are not recovered and surface to the caller.
func Unmarshal(data []byte, out interface{}) error {
	if len(data) == 0 {
		return errors.New(errors.ErrorTypeValidation, "data is required")
	}
	outV := reflect.ValueOf(out)
	if outV.Kind() != reflect.Pointer || outV.IsNil() {
		return errors.New(errors.ErrorTypeValidation, "out must be a non-nil pointer to a slice")
	}
	sliceV := outV.Elem()
	if sliceV.Kind() != reflect.Slice {
		return errors.Newf(errors.ErrorTypeValidation, "out must point to a slice, got %s", sliceV.Kind())
	}

	elemType := sliceV.Type().Elem()
	ptrElem := elemType.Kind() == reflect.Pointer
	if ptrElem {
		elemType = elemType.Elem()
	}

	records, err := readRecords(data, elemType)
	if err != nil {
		return err
	}

	result := reflect.MakeSlice(sliceV.Type(), 0, len(records))
	for _, rec := range records {
		if ptrElem {
			result = reflect.Append(result, rec.Addr())
		} else {
			result = reflect.Append(result, rec)
		}
	}
	sliceV.Set(result)
	return nil
}

// UnmarshalOne parses a Parquet buffer into out, a non-nil pointer to a
// single record, taking the first decoded row. It fails with a not-found
// error when zero rows decode.
func UnmarshalOne(data []byte, out interface{}) error {
	if len(data) == 0 {
		return errors.New(errors.ErrorTypeValidation, "data is required")
	}
	outV := reflect.ValueOf(out)
	if outV.Kind() != reflect.Pointer || outV.IsNil() {
		return errors.New(errors.ErrorTypeValidation, "out must be a non-nil pointer to a struct")
	}

	records, err := readRecords(data, outV.Elem().Type())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.New(errors.ErrorTypeNotFound, "no rows decoded")
	}
	outV.Elem().Set(records[0])
	return nil
}

// readRecords parses the container, reads row group 0, pivots column arrays
// into per-row field maps, and hydrates one record per row.
func readRecords(data []byte, elemType reflect.Type) ([]reflect.Value, error) {
	fields, err := schema.Describe(elemType)
	if err != nil {
		return nil, err
	}

	fr, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse container")
	}
	defer fr.Close()

	ar, err := pqarrow.NewFileReader(fr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open column reader")
	}

	if fr.NumRowGroups() == 0 {
		return nil, nil
	}

	tbl, err := ar.ReadRowGroups(context.Background(), nil, []int{0})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read row group")
	}
	defer tbl.Release()

	// Only columns with a same-named record field participate.
	type boundColumn struct {
		field  schema.Field
		values []interface{}
	}
	bound := make([]boundColumn, 0, int(tbl.NumCols()))
	for i := 0; i < int(tbl.NumCols()); i++ {
		name := tbl.Schema().Field(i).Name
		f, ok := schema.LookupField(fields, name)
		if !ok {
			continue
		}
		bound = append(bound, boundColumn{field: f, values: columnValues(tbl.Column(i))})
	}

	numRows := int(tbl.NumRows())
	records := make([]reflect.Value, 0, numRows)
	for r := 0; r < numRows; r++ {
		row := pool.GetRow()
		for _, bc := range bound {
			// Bounds-checked per column independently: unequal column
			// lengths are malformed input the pivot tolerates.
			if r < len(bc.values) && bc.values[r] != nil {
				row[bc.field.Name] = bc.values[r]
			}
		}

		rec := reflect.New(elemType).Elem()
		for _, f := range fields {
			v, ok := row[f.Name]
			if !ok {
				continue
			}
			if err := assignField(rec.Field(f.Index), f, v); err != nil {
				pool.PutRow(row)
				return nil, err
			}
		}
		pool.PutRow(row)
		records = append(records, rec)
	}

	return records, nil
}

// columnValues flattens a column's chunked array into Go values, with nil
// marking null slots.
func columnValues(col *arrow.Column) []interface{} {
	values := make([]interface{}, 0, col.Len())
	for _, chunk := range col.Data().Chunks() {
		for i := 0; i < chunk.Len(); i++ {
			if chunk.IsNull(i) {
				values = append(values, nil)
				continue
			}
			values = append(values, arrayValue(chunk, i))
		}
	}
	return values
}

// arrayValue converts one array slot to its Go representation.
func arrayValue(chunk arrow.Array, i int) interface{} {
	switch c := chunk.(type) {
	case *array.Int32:
		return c.Value(i)
	case *array.Int64:
		return c.Value(i)
	case *array.Float32:
		return c.Value(i)
	case *array.Float64:
		return c.Value(i)
	case *array.Boolean:
		return c.Value(i)
	case *array.String:
		return c.Value(i)
	case *array.Binary:
		return append([]byte(nil), c.Value(i)...)
	case *array.FixedSizeBinary:
		return append([]byte(nil), c.Value(i)...)
	case *array.Timestamp:
		unit := c.DataType().(*arrow.TimestampType).Unit
		return c.Value(i).ToTime(unit)
	case *array.Decimal128:
		scale := c.DataType().(*arrow.Decimal128Type).Scale
		return decimal.NewFromBigInt(c.Value(i).BigInt(), -scale)
	default:
		return nil
	}
}

// assignField coerces a raw column value to the field's declared type and
// assigns it. Unlike materialization, a coercion failure here surfaces to
// the caller.
func assignField(target reflect.Value, f schema.Field, v interface{}) error {
	if target.Kind() == reflect.Pointer {
		elem := reflect.New(target.Type().Elem())
		if err := assignField(elem.Elem(), f, v); err != nil {
			return err
		}
		target.Set(elem)
		return nil
	}

	vv := reflect.ValueOf(v)
	ft := target.Type()

	if vv.Type() == ft {
		target.Set(vv)
		return nil
	}

	switch val := v.(type) {
	case string:
		return assignString(target, f, val)

	case time.Time:
		if ft == timeType() {
			target.Set(vv)
			return nil
		}
		if ft.Kind() == reflect.String {
			target.SetString(val.Format(time.RFC3339Nano))
			return nil
		}

	case []byte:
		switch {
		case ft == uuidType():
			id, err := uuid.FromBytes(val)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeData, "invalid unique identifier for field "+f.Name)
			}
			target.Set(reflect.ValueOf(id))
			return nil
		case ft.Kind() == reflect.Slice && ft.Elem().Kind() == reflect.Uint8:
			target.Set(vv.Convert(ft))
			return nil
		case ft.Kind() == reflect.String:
			target.SetString(string(val))
			return nil
		}

	case decimal.Decimal:
		switch ft.Kind() {
		case reflect.Float32, reflect.Float64:
			target.SetFloat(val.InexactFloat64())
			return nil
		case reflect.String:
			target.SetString(val.String())
			return nil
		}
	}

	// Numeric widening/narrowing between column and field representations.
	switch ft.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if isNumeric(vv.Kind()) {
			target.Set(vv.Convert(ft))
			return nil
		}
	}

	if vv.Type().ConvertibleTo(ft) {
		target.Set(vv.Convert(ft))
		return nil
	}

	return errors.Newf(errors.ErrorTypeData, "cannot convert %T to %s for field %s", v, ft, f.Name)
}

// assignString handles string column values, including enum member recovery
// via encoding.TextUnmarshaler and parsing of typed string forms.
func assignString(target reflect.Value, f schema.Field, s string) error {
	ft := target.Type()

	if ft.Kind() == reflect.String {
		target.SetString(s)
		return nil
	}

	if target.CanAddr() && reflect.PointerTo(ft).Implements(textUnmarshalerType) {
		if err := target.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "invalid enum value for field "+f.Name)
		}
		return nil
	}

	switch ft.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "invalid integer value for field "+f.Name)
		}
		target.SetInt(n)
		return nil
	case reflect.Float32, reflect.Float64:
		fv, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "invalid float value for field "+f.Name)
		}
		target.SetFloat(fv)
		return nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "invalid boolean value for field "+f.Name)
		}
		target.SetBool(b)
		return nil
	}

	switch ft {
	case timeType():
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "invalid timestamp value for field "+f.Name)
		}
		target.Set(reflect.ValueOf(t))
		return nil
	case uuidType():
		id, err := uuid.Parse(s)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "invalid unique identifier for field "+f.Name)
		}
		target.Set(reflect.ValueOf(id))
		return nil
	case decimalType():
		d, err := decimal.NewFromString(s)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "invalid decimal value for field "+f.Name)
		}
		target.Set(reflect.ValueOf(d))
		return nil
	}

	return errors.Newf(errors.ErrorTypeData, "cannot convert string to %s for field %s", ft, f.Name)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func timeType() reflect.Type    { return reflect.TypeOf(time.Time{}) }
func uuidType() reflect.Type    { return reflect.TypeOf(uuid.UUID{}) }
func decimalType() reflect.Type { return reflect.TypeOf(decimal.Decimal{}) }
