package store

import (
	"context"
	stderrors "errors"
	"path"
	"reflect"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/strataworks/strata/pkg/compression"
	"github.com/strataworks/strata/pkg/config"
	"github.com/strataworks/strata/pkg/errors"
	"github.com/strataworks/strata/pkg/formats"
	"github.com/strataworks/strata/pkg/logger"
	"github.com/strataworks/strata/pkg/metrics"
	"github.com/strataworks/strata/pkg/observability"
)

// Client is the storage façade. It orchestrates codec selection, directory
// creation, upload with the conflict fallback, and download with format
// detection. The serialization codecs themselves stay pure; the client owns
// all I/O.
type Client struct {
	store  ObjectStore
	cfg    *config.Config
	comp   compression.Compressor
	logger *zap.Logger
}

// ClientOption configures a client.
type ClientOption func(*Client)

// WithLogger replaces the global logger for this client.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient opens (or reuses) the configured store handle and builds a
// client around it.
func NewClient(ctx context.Context, cfg *config.Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}

	objStore, err := Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	comp, err := compression.NewCompressor(compression.Algorithm(cfg.Serialization.Compression))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid compression algorithm")
	}

	c := &Client{
		store:  objStore,
		cfg:    cfg,
		comp:   comp,
		logger: logger.Get(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("backend", objStore.Backend()))
	return c, nil
}

// SaveOptions configures one save operation.
type SaveOptions struct {
	Format formats.Format
}

// SaveOption configures a single save option.
type SaveOption func(*SaveOptions)

// WithFormat overrides the configured default format for one save.
func WithFormat(f formats.Format) SaveOption {
	return func(o *SaveOptions) { o.Format = f }
}

// Save serializes the items and uploads them to dir/name, appending the
// format's default extension when name carries none. An existing
// destination triggers one bounded delete-pause-reupload cycle; exhausting
// it surfaces a wrapped conflict error naming the original cause. It
// returns the full object name written.
func (c *Client) Save(ctx context.Context, dir, name string, items interface{}, opts ...SaveOption) (string, error) {
	o := SaveOptions{Format: formats.Format(c.cfg.Serialization.Format)}
	for _, opt := range opts {
		opt(&o)
	}

	info := formats.GetInfo(o.Format)
	if info == nil {
		return "", errors.Newf(errors.ErrorTypeValidation, "unsupported format: %s", o.Format)
	}

	codec, err := formats.NewCodecWithOptions(o.Format, formats.CodecOptions{
		ParquetCompression: c.cfg.Serialization.ParquetCompression,
	})
	if err != nil {
		return "", err
	}

	ctx, span := observability.StartSpan(ctx, "store.save",
		attribute.String("format", string(o.Format)),
		attribute.String("backend", c.store.Backend()),
	)
	var opErr error
	defer func() { observability.EndSpan(span, opErr) }()

	timer := metrics.NewTimer("serialize", c.store.Backend())
	data, err := codec.Marshal(items)
	timer.Stop()
	if err != nil {
		opErr = err
		return "", err
	}
	metrics.RecordsSerialized.WithLabelValues(string(o.Format)).Add(float64(itemCount(items)))

	objectName := name
	if path.Ext(objectName) == "" {
		objectName += info.FileExtension
	}

	// The columnar container carries its own page compression; only
	// row-oriented payloads go through the payload compressor.
	contentType := info.MIMEType
	if o.Format == formats.JSON && c.comp.Algorithm() != compression.None {
		if data, err = c.comp.Compress(data); err != nil {
			opErr = err
			return "", errors.Wrap(err, errors.ErrorTypeData, "failed to compress payload")
		}
		objectName += c.comp.Algorithm().Extension()
	}
	if dir != "" {
		objectName = path.Join(dir, objectName)
	}

	if err := c.store.EnsureDir(ctx, dir); err != nil {
		opErr = err
		return "", err
	}

	timer = metrics.NewTimer("upload", c.store.Backend())
	err = c.upload(ctx, objectName, data, contentType)
	timer.Stop()
	if err != nil {
		metrics.OperationErrors.WithLabelValues("upload", c.store.Backend()).Inc()
		opErr = err
		return "", err
	}

	metrics.BytesUploaded.WithLabelValues(c.store.Backend()).Add(float64(len(data)))
	c.logger.Info("saved records",
		zap.String("object", objectName),
		zap.String("format", string(o.Format)),
		zap.Int("bytes", len(data)))
	return objectName, nil
}

// upload writes the payload without overwrite and falls back to one
// delete-pause-reupload cycle on an existing destination. The fallback is
// best effort, not a transactional guarantee; concurrent writers race at
// the remote store's discretion.
func (c *Client) upload(ctx context.Context, name string, data []byte, contentType string) error {
	err := c.store.Upload(ctx, name, data, contentType, false)
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, ErrObjectExists) {
		return err
	}

	metrics.UploadConflicts.WithLabelValues(c.store.Backend()).Inc()
	c.logger.Warn("destination exists, retrying after delete", zap.String("object", name))

	if delErr := c.store.Delete(ctx, name); delErr != nil {
		return errors.Wrap(delErr, errors.ErrorTypeConflict, "failed to delete existing destination "+name)
	}

	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "canceled while waiting to re-upload "+name)
	case <-time.After(c.cfg.Store.RetryDelay):
	}

	if err := c.store.Upload(ctx, name, data, contentType, false); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConflict, "upload failed after delete-and-retry of "+name)
	}
	return nil
}

// Load downloads an object and deserializes it into out, a pointer to a
// slice of records. The format is detected from the object name's
// extension.
func (c *Client) Load(ctx context.Context, name string, out interface{}) error {
	return c.load(ctx, name, out, false)
}

// LoadOne downloads an object and deserializes its first record into out, a
// pointer to a single record. It fails with a not-found error when zero
// rows decode from a columnar payload.
func (c *Client) LoadOne(ctx context.Context, name string, out interface{}) error {
	return c.load(ctx, name, out, true)
}

func (c *Client) load(ctx context.Context, name string, out interface{}, single bool) error {
	format, compAlg := detectFormat(name)
	if format == "" {
		return errors.Newf(errors.ErrorTypeValidation, "cannot detect format from object name: %s", name)
	}

	codec, err := formats.NewCodec(format)
	if err != nil {
		return err
	}

	ctx, span := observability.StartSpan(ctx, "store.load",
		attribute.String("format", string(format)),
		attribute.String("backend", c.store.Backend()),
	)
	var opErr error
	defer func() { observability.EndSpan(span, opErr) }()

	timer := metrics.NewTimer("download", c.store.Backend())
	data, err := c.store.Download(ctx, name)
	timer.Stop()
	if err != nil {
		metrics.OperationErrors.WithLabelValues("download", c.store.Backend()).Inc()
		opErr = err
		return err
	}
	metrics.BytesDownloaded.WithLabelValues(c.store.Backend()).Add(float64(len(data)))

	if compAlg != compression.None {
		comp, err := compression.NewCompressor(compAlg)
		if err != nil {
			opErr = err
			return errors.Wrap(err, errors.ErrorTypeData, "unsupported payload compression")
		}
		if data, err = comp.Decompress(data); err != nil {
			opErr = err
			return errors.Wrap(err, errors.ErrorTypeData, "failed to decompress payload")
		}
	}

	if single {
		opErr = codec.UnmarshalOne(data, out)
	} else {
		opErr = codec.Unmarshal(data, out)
	}
	if opErr == nil {
		metrics.RecordsDeserialized.WithLabelValues(string(format)).Add(float64(itemCount(out)))
	}
	return opErr
}

// Delete removes an object from the store.
func (c *Client) Delete(ctx context.Context, name string) error {
	return c.store.Delete(ctx, name)
}

// Store exposes the underlying object store handle.
func (c *Client) Store() ObjectStore { return c.store }

// detectFormat resolves the format and payload compression from the object
// name's extensions.
func detectFormat(name string) (formats.Format, compression.Algorithm) {
	compAlg := compression.None
	switch {
	case strings.HasSuffix(name, ".gz"):
		compAlg = compression.Gzip
		name = strings.TrimSuffix(name, ".gz")
	case strings.HasSuffix(name, ".snappy"):
		compAlg = compression.Snappy
		name = strings.TrimSuffix(name, ".snappy")
	case strings.HasSuffix(name, ".lz4"):
		compAlg = compression.LZ4
		name = strings.TrimSuffix(name, ".lz4")
	case strings.HasSuffix(name, ".zst"):
		compAlg = compression.Zstd
		name = strings.TrimSuffix(name, ".zst")
	}

	switch path.Ext(name) {
	case ".json":
		return formats.JSON, compAlg
	case ".parquet":
		return formats.Parquet, compAlg
	default:
		return "", compAlg
	}
}

// itemCount reports the record count of a slice, a pointer to one, or a
// single record.
func itemCount(v interface{}) int {
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return 0
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len()
	}
	return 1
}
