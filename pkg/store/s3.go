package store

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/strataworks/strata/pkg/config"
	"github.com/strataworks/strata/pkg/errors"
)

// s3Store stores objects in one S3 bucket. Directories are key prefixes and
// need no creation. S3 puts always overwrite, so the no-overwrite contract
// is approximated with a head-before-put existence check.
type s3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

func newS3Store(ctx context.Context, cfg config.StoreConfig) (*s3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg)
	return &s3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Container,
	}, nil
}

func (s *s3Store) Backend() string { return "s3" }

func (s *s3Store) EnsureDir(_ context.Context, _ string) error { return nil }

func (s *s3Store) Upload(ctx context.Context, name string, data []byte, contentType string, overwrite bool) error {
	if !overwrite {
		exists, err := s.Exists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			return errors.Wrap(ErrObjectExists, errors.ErrorTypeConflict, "destination already exists: "+name)
		}
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to upload "+name)
	}
	return nil
}

func (s *s3Store) Download(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if stderrors.As(err, &noKey) {
			return nil, errors.Wrap(ErrObjectNotFound, errors.ErrorTypeNotFound, "object not found: "+name)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to download "+name)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read "+name)
	}
	return data, nil
}

func (s *s3Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to delete "+name)
	}
	return nil
}

func (s *s3Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		var notFound *types.NotFound
		if stderrors.As(err, &notFound) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrorTypeStorage, "failed to stat "+name)
	}
	return true, nil
}
