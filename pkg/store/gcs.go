package store

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/strataworks/strata/pkg/config"
	"github.com/strataworks/strata/pkg/errors"
)

// gcsStore stores objects in one GCS bucket. Directories are name prefixes
// and need no creation.
type gcsStore struct {
	bucket *storage.BucketHandle
}

func newGCSStore(ctx context.Context, cfg config.StoreConfig) (*gcsStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create GCS client")
	}
	return &gcsStore{bucket: client.Bucket(cfg.Container)}, nil
}

func (s *gcsStore) Backend() string { return "gcs" }

func (s *gcsStore) EnsureDir(_ context.Context, _ string) error { return nil }

func (s *gcsStore) Upload(ctx context.Context, name string, data []byte, contentType string, overwrite bool) error {
	obj := s.bucket.Object(name)
	if !overwrite {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to upload "+name)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if stderrors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return errors.Wrap(ErrObjectExists, errors.ErrorTypeConflict, "destination already exists: "+name)
		}
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to upload "+name)
	}
	return nil
}

func (s *gcsStore) Download(ctx context.Context, name string) ([]byte, error) {
	r, err := s.bucket.Object(name).NewReader(ctx)
	if err != nil {
		if stderrors.Is(err, storage.ErrObjectNotExist) {
			return nil, errors.Wrap(ErrObjectNotFound, errors.ErrorTypeNotFound, "object not found: "+name)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to download "+name)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read "+name)
	}
	return data, nil
}

func (s *gcsStore) Delete(ctx context.Context, name string) error {
	if err := s.bucket.Object(name).Delete(ctx); err != nil && !stderrors.Is(err, storage.ErrObjectNotExist) {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to delete "+name)
	}
	return nil
}

func (s *gcsStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.bucket.Object(name).Attrs(ctx)
	if err != nil {
		if stderrors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrorTypeStorage, "failed to stat "+name)
	}
	return true, nil
}
