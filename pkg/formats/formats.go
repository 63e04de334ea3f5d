// Package formats defines the serialization formats Strata can store
// records in and provides codec construction for the storage layer.
package formats

import (
	"github.com/strataworks/strata/pkg/errors"
	jsoncodec "github.com/strataworks/strata/pkg/formats/json"
	parquetcodec "github.com/strataworks/strata/pkg/formats/parquet"
)

// Format represents a record serialization format
type Format string

const (
	// JSON is the row-oriented, human-readable format
	JSON Format = "json"
	// Parquet is the column-oriented binary format
	Parquet Format = "parquet"
)

// Codec serializes and deserializes typed records to and from a byte
// buffer. Marshal takes a non-empty slice of records; Unmarshal fills a
// pointer to a slice; UnmarshalOne fills a pointer to a single record.
// Zero decodable rows are a not-found error for the columnar codec, while
// the JSON codec leaves out at its zero value.
type Codec interface {
	Format() Format
	Marshal(items interface{}) ([]byte, error)
	Unmarshal(data []byte, out interface{}) error
	UnmarshalOne(data []byte, out interface{}) error
}

// Info provides information about a serialization format
type Info struct {
	Format        Format
	Name          string
	Description   string
	FileExtension string
	MIMEType      string
	Columnar      bool
}

// GetInfo returns information about a format, or nil for unknown formats.
func GetInfo(format Format) *Info {
	switch format {
	case JSON:
		return &Info{
			Format:        JSON,
			Name:          "JSON",
			Description:   "Row-oriented, human-readable text format",
			FileExtension: ".json",
			MIMEType:      "application/json",
			Columnar:      false,
		}
	case Parquet:
		return &Info{
			Format:        Parquet,
			Name:          "Apache Parquet",
			Description:   "Columnar storage format optimized for analytics",
			FileExtension: ".parquet",
			MIMEType:      "application/x-parquet",
			Columnar:      true,
		}
	default:
		return nil
	}
}

// Formats returns all supported formats.
func Formats() []Format {
	return []Format{JSON, Parquet}
}

// CodecOptions tunes codec construction beyond the format choice.
type CodecOptions struct {
	// ParquetCompression selects the columnar page compression codec
	// (snappy, gzip, zstd, lz4, none). Empty means snappy.
	ParquetCompression string
}

// NewCodec creates a codec for the given format with default options.
func NewCodec(format Format) (Codec, error) {
	return NewCodecWithOptions(format, CodecOptions{})
}

// NewCodecWithOptions creates a codec for the given format.
func NewCodecWithOptions(format Format, opts CodecOptions) (Codec, error) {
	switch format {
	case JSON:
		return jsonCodec{}, nil
	case Parquet:
		return parquetCodec{codec: parquetcodec.NewCodec(
			parquetcodec.WithCompression(opts.ParquetCompression),
		)}, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported format: %s", format)
	}
}

type jsonCodec struct{}

func (jsonCodec) Format() Format { return JSON }

func (jsonCodec) Marshal(items interface{}) ([]byte, error) {
	return jsoncodec.Marshal(items)
}

func (jsonCodec) Unmarshal(data []byte, out interface{}) error {
	return jsoncodec.Unmarshal(data, out)
}

func (jsonCodec) UnmarshalOne(data []byte, out interface{}) error {
	return jsoncodec.UnmarshalOne(data, out)
}

type parquetCodec struct {
	codec *parquetcodec.Codec
}

func (parquetCodec) Format() Format { return Parquet }

func (c parquetCodec) Marshal(items interface{}) ([]byte, error) {
	return c.codec.Marshal(items)
}

func (c parquetCodec) Unmarshal(data []byte, out interface{}) error {
	return c.codec.Unmarshal(data, out)
}

func (c parquetCodec) UnmarshalOne(data []byte, out interface{}) error {
	return c.codec.UnmarshalOne(data, out)
}
