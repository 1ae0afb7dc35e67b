package files

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core"
)

const locationSep = "|"

// CloudinaryStore keeps files on Cloudinary.
// Locations are "<resource type>|<public id>|<secure url>", enough to both fetch and destroy the asset.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	client *http.Client
	root   string
}

var _ core.FileStore = (*CloudinaryStore)(nil)

func NewCloudinaryStore(cloudinaryURL, rootFolder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, errors.Wrap(err, "initializing cloudinary")
	}
	return &CloudinaryStore{
		cld:    cld,
		client: http.DefaultClient,
		root:   strings.Trim(rootFolder, "/"),
	}, nil
}

func (s *CloudinaryStore) Save(ctx context.Context, folder, filename string, r io.Reader) (string, error) {
	if s.root != "" {
		folder = s.root + "/" + strings.Trim(folder, "/")
	}
	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       folder,
		PublicID:     strings.TrimSuffix(filename, filepath.Ext(filename)),
		ResourceType: "auto",
	})
	if err != nil {
		return "", errors.Wrap(err, "uploading to cloudinary")
	}
	if res.Error.Message != "" {
		return "", errors.Errorf("uploading to cloudinary: %s", res.Error.Message)
	}
	return strings.Join([]string{res.ResourceType, res.PublicID, res.SecureURL}, locationSep), nil
}

func parseLocation(location string) (resourceType, publicID, url string, err error) {
	parts := strings.SplitN(location, locationSep, 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", "", "", errBadLocation
	}
	return parts[0], parts[1], parts[2], nil
}

func (s *CloudinaryStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	_, _, url, err := parseLocation(location)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching file")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, core.NewNotFoundError("file not found")
		}
		return nil, fmt.Errorf("fetching file: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, location string) error {
	resourceType, publicID, _, err := parseLocation(location)
	if err != nil {
		return err
	}
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return errors.Wrap(err, "destroying cloudinary asset")
	}
	if res.Error.Message != "" {
		return errors.Errorf("destroying cloudinary asset: %s", res.Error.Message)
	}
	return nil
}
