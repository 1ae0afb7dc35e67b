// Package files holds the core.FileStore implementations.
package files

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core"
)

var errBadLocation = errors.New("invalid file location")

// LocalStore keeps files on disk under a root directory. Locations are slash separated paths relative to it.
type LocalStore struct {
	root string
}

var _ core.FileStore = (*LocalStore)(nil)

func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("upload dir is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolving upload dir")
	}
	if err = os.MkdirAll(abs, 0o750); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &LocalStore{root: abs}, nil
}

// path resolves location inside the root, rejecting anything that escapes it.
func (s *LocalStore) path(location string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(location))
	if p == s.root || !strings.HasPrefix(p, s.root+string(os.PathSeparator)) {
		return "", errBadLocation
	}
	return p, nil
}

func (s *LocalStore) Save(_ context.Context, folder, filename string, r io.Reader) (string, error) {
	location := strings.Trim(folder, "/") + "/" + filepath.Base(filename)
	p, err := s.path(location)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return "", errors.Wrap(err, "creating folder")
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return "", errors.Wrap(err, "writing file")
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(p)
		return "", errors.Wrap(err, "closing file")
	}
	return location, nil
}

func (s *LocalStore) Open(_ context.Context, location string) (io.ReadCloser, error) {
	p, err := s.path(location)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewNotFoundError("file not found")
		}
		return nil, errors.Wrap(err, "opening file")
	}
	return f, nil
}

// Delete removes the file at location. A missing file is not an error.
func (s *LocalStore) Delete(_ context.Context, location string) error {
	p, err := s.path(location)
	if err != nil {
		return err
	}
	if err = os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "deleting file")
	}
	return nil
}
