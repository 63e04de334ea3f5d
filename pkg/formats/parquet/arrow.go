package parquet

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet/compress"

	"github.com/strataworks/strata/pkg/schema"
)

// Decimal columns are stored as 128-bit decimals with a fixed scale; the
// same precision/scale pair must be used on write and read.
const (
	decimalPrecision = 38
	decimalScale     = 9
)

// arrowType maps a columnar storage type to its Arrow representation.
func arrowType(t schema.Type) arrow.DataType {
	switch t {
	case schema.TypeInt32:
		return arrow.PrimitiveTypes.Int32
	case schema.TypeInt64:
		return arrow.PrimitiveTypes.Int64
	case schema.TypeFloat32:
		return arrow.PrimitiveTypes.Float32
	case schema.TypeFloat64:
		return arrow.PrimitiveTypes.Float64
	case schema.TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case schema.TypeDecimal:
		return &arrow.Decimal128Type{Precision: decimalPrecision, Scale: decimalScale}
	case schema.TypeTimestamp:
		return &arrow.TimestampType{Unit: arrow.Microsecond}
	case schema.TypeTimestampTZ:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	case schema.TypeUUID:
		return &arrow.FixedSizeBinaryType{ByteWidth: 16}
	case schema.TypeBytes:
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

// arrowSchema converts the bound columns to an Arrow schema, preserving
// column order and nullability.
func arrowSchema(bindings []binding) *arrow.Schema {
	fields := make([]arrow.Field, len(bindings))
	for i, b := range bindings {
		fields[i] = arrow.Field{
			Name:     b.column.Name,
			Type:     arrowType(b.column.Type),
			Nullable: b.column.Nullable,
		}
	}
	return arrow.NewSchema(fields, nil)
}

// codecFor maps a compression name to the Parquet codec, defaulting to
// snappy for unknown names.
func codecFor(name string) compress.Compression {
	switch name {
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed
	case "gzip":
		return compress.Codecs.Gzip
	case "zstd":
		return compress.Codecs.Zstd
	case "lz4":
		return compress.Codecs.Lz4Raw
	default:
		return compress.Codecs.Snappy
	}
}
