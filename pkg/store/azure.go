package store

import (
	"context"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/strataworks/strata/pkg/config"
	"github.com/strataworks/strata/pkg/errors"
)

// azureStore stores objects as blobs in one container (the "filesystem" of
// an ADLS-style hierarchical namespace; directories are implicit in blob
// names).
type azureStore struct {
	client    *azblob.Client
	container string
}

func newAzureStore(cfg config.StoreConfig) (*azureStore, error) {
	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create azure blob client")
	}
	return &azureStore{client: client, container: cfg.Container}, nil
}

func (s *azureStore) Backend() string { return "azure" }

// EnsureDir creates the container when missing; blob directories themselves
// are virtual and need no creation.
func (s *azureStore) EnsureDir(ctx context.Context, _ string) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to ensure container "+s.container)
	}
	return nil
}

func (s *azureStore) Upload(ctx context.Context, name string, data []byte, contentType string, overwrite bool) error {
	opts := &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)},
	}
	if !overwrite {
		opts.AccessConditions = &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{
				IfNoneMatch: to.Ptr(azcore.ETagAny),
			},
		}
	}

	_, err := s.client.UploadBuffer(ctx, s.container, name, data, opts)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
			return errors.Wrap(ErrObjectExists, errors.ErrorTypeConflict, "destination already exists: "+name)
		}
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to upload "+name)
	}
	return nil
}

func (s *azureStore) Download(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
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

func (s *azureStore) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteBlob(ctx, s.container, name, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to delete "+name)
	}
	return nil
}

func (s *azureStore) Exists(ctx context.Context, name string) (bool, error) {
	blobClient := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(name)
	_, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrorTypeStorage, "failed to stat "+name)
	}
	return true, nil
}
