// Package media stores product images on Cloudinary.
package media

import (
	"context"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/go-faster/errors"

	"github.com/karibushop/storefront/internal/domain/product"
)

const uploadFolder = "products"

// CloudinaryStore implements product.ImageStore against the Cloudinary API.
type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

var _ product.ImageStore = (*CloudinaryStore)(nil)

// NewCloudinaryStore creates a store from a cloudinary:// credentials URL.
func NewCloudinaryStore(url string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "init cloudinary")
	}
	return &CloudinaryStore{cld: cld}, nil
}

// Upload stores the image (a data URI or remote URL) under the products
// folder and returns the delivery URL.
func (s *CloudinaryStore) Upload(ctx context.Context, image string) (string, error) {
	resp, err := s.cld.Upload.Upload(ctx, image, uploader.UploadParams{Folder: uploadFolder})
	if err != nil {
		return "", errors.Wrap(err, "cloudinary upload")
	}
	return resp.SecureURL, nil
}

// Delete removes the image behind a previously returned delivery URL.
func (s *CloudinaryStore) Delete(ctx context.Context, url string) error {
	publicID := publicIDFromURL(url)
	if publicID == "" {
		return nil
	}
	_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return errors.Wrap(err, "cloudinary destroy")
	}
	return nil
}

// publicIDFromURL recovers the upload public id from a delivery URL: the
// last path segment without its extension, under the upload folder.
func publicIDFromURL(url string) string {
	base := path.Base(url)
	if base == "." || base == "/" {
		return ""
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return uploadFolder + "/" + base
}
