package core

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileStore persists uploaded files. Save returns the location to keep in the DB.
type FileStore interface {
	Save(ctx context.Context, folder, filename string, r io.Reader) (string, error)
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	Delete(ctx context.Context, location string) error
}

var (
	ErrFileRequired = errors.New("file is required")

	uploadContentTypes = map[string]string{
		".pdf":  "application/pdf",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".doc":  "application/msword",
		".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
)

// CheckUpload validates the extension and size of an uploaded file.
func CheckUpload(filename string, size, maxSize int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := uploadContentTypes[ext]; !ok {
		return NewValidationError(nil, FieldError{Field: "file", Error: "only pdf, jpg, jpeg, png, doc and docx files are allowed"})
	}
	if maxSize > 0 && size > maxSize {
		return NewValidationError(nil, FieldError{
			Field: "file",
			Error: fmt.Sprintf("file too large (max %dMB)", maxSize>>20),
		})
	}
	return nil
}

// ContentType returns the MIME type of filename from its extension.
func ContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := uploadContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// Check validates u against the upload whitelist and maxSize.
func (u Upload) Check(maxSize int64) error {
	if u.Content == nil || u.Filename == "" {
		return NewValidationError(nil, FieldError{Field: "file", Error: ErrFileRequired.Error()})
	}
	return CheckUpload(u.Filename, u.Size, maxSize)
}
