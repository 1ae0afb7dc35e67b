package files

import (
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core"
)

// NewStore returns the FileStore selected by storage.backend.
func NewStore(conf *core.Config) (core.FileStore, error) {
	switch conf.Storage.Backend {
	case "", "local":
		return NewLocalStore(conf.Storage.UploadDir)
	case "cloudinary":
		return NewCloudinaryStore(conf.Storage.CloudinaryURL, conf.AppName)
	}
	return nil, errors.Errorf("unknown storage backend %q", conf.Storage.Backend)
}
