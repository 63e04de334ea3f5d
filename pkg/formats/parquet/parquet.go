// Package parquet implements the columnar serialization engine: it maps a
// record type to a columnar schema, materializes field values into typed
// column arrays, writes them as a single Parquet row group, and hydrates
// typed records back from column data on read.
//
// The write path is deliberately lenient: a cell that cannot be coerced to
// its column's storage type is written as the type's zero value and never
// aborts the row group. The read path is strict: a field value that cannot
// be coerced to its declared type surfaces an error, since a read-time
// mismatch means the file no longer matches the expected record type.
package parquet

import (
	"reflect"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/strataworks/strata/pkg/errors"
	"github.com/strataworks/strata/pkg/pool"
	"github.com/strataworks/strata/pkg/schema"
)

const createdBy = "strata"

// Options configures the columnar codec.
type Options struct {
	// Schema overrides schema inference. Columns with no same-named field
	// on the record type are skipped.
	Schema *schema.Schema
	// Compression selects the Parquet page compression codec
	// (snappy, gzip, zstd, lz4, none). Defaults to snappy.
	Compression string
}

// Option configures a single codec option.
type Option func(*Options)

// WithSchema supplies an explicit columnar schema instead of inferring one
// from the record type.
func WithSchema(s *schema.Schema) Option {
	return func(o *Options) { o.Schema = s }
}

// WithCompression selects the Parquet compression codec by name.
func WithCompression(name string) Option {
	return func(o *Options) { o.Compression = name }
}

// Codec is a columnar codec with fixed options.
type Codec struct {
	opts Options
}

// NewCodec creates a columnar codec.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

// Marshal serializes the items to a single-row-group Parquet buffer.
func (c *Codec) Marshal(items interface{}) ([]byte, error) {
	return marshal(items, c.opts)
}

// Unmarshal deserializes a Parquet buffer into out, a pointer to a slice of
// records.
func (c *Codec) Unmarshal(data []byte, out interface{}) error {
	return Unmarshal(data, out)
}

// UnmarshalOne deserializes the first row of a Parquet buffer into out, a
// pointer to a single record.
func (c *Codec) UnmarshalOne(data []byte, out interface{}) error {
	return UnmarshalOne(data, out)
}

// Marshal serializes a non-empty slice of records into a Parquet buffer
// containing exactly one row group with the schema embedded. The schema is
// inferred from the record type unless WithSchema supplies one. Callers
// needing larger datasets split them into multiple stored objects.
func Marshal(items interface{}, opts ...Option) ([]byte, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return marshal(items, o)
}

func marshal(items interface{}, o Options) ([]byte, error) {
	if items == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "items are required")
	}

	rv := reflect.ValueOf(items)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errors.Newf(errors.ErrorTypeValidation, "items must be a slice, got %T", items)
	}
	if rv.Len() == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "at least one item required")
	}

	elemType := rv.Type().Elem()
	for elemType.Kind() == reflect.Pointer {
		elemType = elemType.Elem()
	}

	s := o.Schema
	if s == nil {
		var err error
		if s, err = schema.ForType(elemType); err != nil {
			return nil, err
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	fields, err := schema.Describe(elemType)
	if err != nil {
		return nil, err
	}

	bindings := bind(s, fields)
	if len(bindings) == 0 {
		return nil, errors.Newf(errors.ErrorTypeSchema, "no schema columns match fields of type %s", elemType)
	}

	rec := materialize(rv, bindings)
	defer rec.Release()

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(codecFor(o.Compression)),
		parquet.WithCreatedBy(createdBy),
		parquet.WithDictionaryDefault(true),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	fw, err := pqarrow.NewFileWriter(rec.Schema(), buf, props, arrowProps)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to create row group writer")
	}
	if err := fw.Write(rec); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to write row group")
	}
	if err := fw.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to finalize row group")
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
