package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the configured limit.
	ErrFileTooLarge = errors.New("file exceeds upload limit")
	// ErrNotImage is returned when the sniffed content type is not an allowed raster image.
	ErrNotImage = errors.New("only image files are allowed")
)

// allowedImageTypes excludes SVG since it can carry script.
var allowedImageTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp"}

// PhotoStore keeps uploaded student photos on local disk and serves them
// under a public URL prefix.
type PhotoStore struct {
	baseDir   string
	urlPrefix string
	maxBytes  int64
	now       func() time.Time
}

// NewPhotoStore ensures the upload directory exists.
func NewPhotoStore(baseDir, urlPrefix string, maxBytes int64) (*PhotoStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &PhotoStore{
		baseDir:   baseDir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		maxBytes:  maxBytes,
		now:       time.Now,
	}, nil
}

// Dir returns the directory that holds stored files.
func (s *PhotoStore) Dir() string {
	return s.baseDir
}

// MaxBytes returns the per-file limit. Zero means unlimited.
func (s *PhotoStore) MaxBytes() int64 {
	return s.maxBytes
}

// SaveImage validates and writes an uploaded image. The stored name is derived
// from the upload time and the sniffed type; the client file name is ignored.
func (s *PhotoStore) SaveImage(_ string, r io.Reader) (string, error) {
	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", ErrFileTooLarge
	}
	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedImageTypes...) {
		return "", ErrNotImage
	}

	name := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), uuid.NewString()[:8], mtype.Extension())

	file, err := os.OpenFile(s.resolve(name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, bytes.NewReader(data)); err != nil {
		_ = os.Remove(s.resolve(name))
		return "", fmt.Errorf("write upload: %w", err)
	}
	return name, nil
}

// Open returns a read-only handle for the stored file.
func (s *PhotoStore) Open(name string) (*os.File, error) {
	file, err := os.Open(s.resolve(name))
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *PhotoStore) Delete(name string) error {
	if err := os.Remove(s.resolve(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

// URL builds the public path for a stored file.
func (s *PhotoStore) URL(name string) string {
	if name == "" {
		return ""
	}
	return path.Join(s.urlPrefix, name)
}

func (s *PhotoStore) resolve(name string) string {
	return filepath.Join(s.baseDir, filepath.Base(name))
}
