// Package store provides the storage façade: it serializes typed records
// with the chosen codec and uploads them to a remote hierarchical object
// store, with a delete-then-retry fallback when the destination already
// exists. Remote-store handles are cached per connection-string+container
// pair; concurrent first access constructs exactly one handle.
package store

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/strataworks/strata/pkg/config"
	"github.com/strataworks/strata/pkg/errors"
)

// Sentinel errors backends translate their SDK failures into. Callers test
// them with errors.Is.
var (
	// ErrObjectExists reports an upload destination that already exists.
	ErrObjectExists = stderrors.New("object already exists")
	// ErrObjectNotFound reports a missing download source.
	ErrObjectNotFound = stderrors.New("object not found")
)

// ObjectStore is the byte-stream contract the façade consumes: whole
// payloads in, whole payloads out.
type ObjectStore interface {
	// Backend returns the backend name for logging and metrics.
	Backend() string
	// EnsureDir makes sure the target directory exists.
	EnsureDir(ctx context.Context, dir string) error
	// Upload writes data to name. With overwrite disabled an existing
	// destination fails with ErrObjectExists.
	Upload(ctx context.Context, name string, data []byte, contentType string, overwrite bool) error
	// Download reads the entire object content into memory.
	Download(ctx context.Context, name string) ([]byte, error)
	// Delete removes the object.
	Delete(ctx context.Context, name string) error
	// Exists reports whether the object exists.
	Exists(ctx context.Context, name string) (bool, error)
}

// cacheEntry guards one handle construction.
type cacheEntry struct {
	once  sync.Once
	store ObjectStore
	err   error
}

var handleCache sync.Map

// Open returns the object store handle for the given configuration,
// constructing it on first use. Handles are cached by
// backend+connection-string+container; the insert-if-absent on the cache is
// atomic, so concurrent first callers share one construction.
func Open(ctx context.Context, cfg config.StoreConfig) (ObjectStore, error) {
	key := cfg.Backend + "|" + cfg.ConnectionString + "|" + cfg.Container

	v, _ := handleCache.LoadOrStore(key, &cacheEntry{})
	entry := v.(*cacheEntry)
	entry.once.Do(func() {
		entry.store, entry.err = open(ctx, cfg)
	})
	if entry.err != nil {
		// Drop failed constructions so a later call can retry.
		handleCache.Delete(key)
		return nil, entry.err
	}
	return entry.store, nil
}

func open(ctx context.Context, cfg config.StoreConfig) (ObjectStore, error) {
	switch cfg.Backend {
	case "azure":
		return newAzureStore(cfg)
	case "s3":
		return newS3Store(ctx, cfg)
	case "gcs":
		return newGCSStore(ctx, cfg)
	case "file":
		return newFileStore(cfg)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown store backend: %s", cfg.Backend)
	}
}
