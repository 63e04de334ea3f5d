// Package json implements the row-oriented record codec: a thin passthrough
// over goccy/go-json producing human-readable, whitespace-formatted output.
// Field omission follows the record type's json struct tags.
package json

import (
	"reflect"

	gojson "github.com/goccy/go-json"

	"github.com/strataworks/strata/pkg/errors"
	"github.com/strataworks/strata/pkg/pool"
)

// Marshal serializes one or many records to indented JSON bytes.
func Marshal(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "value is required")
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	enc := gojson.NewEncoder(buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to encode JSON")
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// Unmarshal deserializes JSON bytes into out, a pointer to a record or a
// slice of records.
func Unmarshal(data []byte, out interface{}) error {
	if len(data) == 0 {
		return errors.New(errors.ErrorTypeValidation, "data is required")
	}
	if err := gojson.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to decode JSON")
	}
	return nil
}

// UnmarshalOne deserializes JSON bytes into a single record: the first
// element when the payload encodes a sequence, the whole payload when it
// encodes a single object. When nothing decodes, out is left at its zero
// value and no error is returned.
func UnmarshalOne(data []byte, out interface{}) error {
	if len(data) == 0 {
		return errors.New(errors.ErrorTypeValidation, "data is required")
	}
	outV := reflect.ValueOf(out)
	if outV.Kind() != reflect.Pointer || outV.IsNil() {
		return errors.New(errors.ErrorTypeValidation, "out must be a non-nil pointer")
	}

	// Try a sequence first; fall back to a single object.
	sliceType := reflect.SliceOf(outV.Elem().Type())
	slice := reflect.New(sliceType)
	if err := gojson.Unmarshal(data, slice.Interface()); err == nil {
		if slice.Elem().Len() > 0 {
			outV.Elem().Set(slice.Elem().Index(0))
		}
		return nil
	}

	if err := gojson.Unmarshal(data, out); err != nil {
		// Nothing decodes: leave out at its zero value.
		outV.Elem().Set(reflect.Zero(outV.Elem().Type()))
	}
	return nil
}
