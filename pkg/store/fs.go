package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/strataworks/strata/pkg/config"
	"github.com/strataworks/strata/pkg/errors"
)

// fileStore stores objects under a local directory. It backs tests and
// offline CLI use; the path layout mirrors the remote backends.
type fileStore struct {
	root string
}

func newFileStore(cfg config.StoreConfig) (*fileStore, error) {
	root := filepath.Join(cfg.ConnectionString, cfg.Container)
	if root == "" {
		root = "."
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create store root "+root)
	}
	return &fileStore{root: root}, nil
}

func (s *fileStore) Backend() string { return "file" }

func (s *fileStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

func (s *fileStore) EnsureDir(_ context.Context, dir string) error {
	if err := os.MkdirAll(s.path(dir), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to create directory "+dir)
	}
	return nil
}

func (s *fileStore) Upload(_ context.Context, name string, data []byte, _ string, overwrite bool) error {
	p := s.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to create directory for "+name)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	f, err := os.OpenFile(p, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return errors.Wrap(ErrObjectExists, errors.ErrorTypeConflict, "destination already exists: "+name)
		}
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to create "+name)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write "+name)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to close "+name)
	}
	return nil
}

func (s *fileStore) Download(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrObjectNotFound, errors.ErrorTypeNotFound, "object not found: "+name)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read "+name)
	}
	return data, nil
}

func (s *fileStore) Delete(_ context.Context, name string) error {
	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to delete "+name)
	}
	return nil
}

func (s *fileStore) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrorTypeStorage, "failed to stat "+name)
	}
	return true, nil
}
