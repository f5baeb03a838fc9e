package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxUploadBytes caps screenshot uploads; large files would need resumable
// machinery the upload path deliberately avoids.
const MaxUploadBytes = 5 * 1024 * 1024

var (
	// ErrUnsupportedType rejects uploads outside the image allow-list.
	ErrUnsupportedType = errors.New("storage: unsupported file type")
	// ErrTooLarge rejects uploads above MaxUploadBytes.
	ErrTooLarge = errors.New("storage: file too large")
	// ErrEmptyFile rejects zero-length uploads.
	ErrEmptyFile    = errors.New("storage: empty file")
	errMissingStore = errors.New("storage: blob store is required")
)

// allowedImageTypes maps accepted MIME types to the stored extension.
var allowedImageTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// UploadResult describes a stored screenshot.
type UploadResult struct {
	URL        string `json:"url"`
	StoredName string `json:"fileName"`
}

// UploaderConfig bundles the uploader dependencies.
type UploaderConfig struct {
	Store  BlobStore
	Clock  func() time.Time
	Logger *zap.Logger
}

// Uploader validates screenshot uploads and writes them to the blob store
// under collision-resistant names.
type Uploader struct {
	store  BlobStore
	clock  func() time.Time
	logger *zap.Logger
}

// NewUploader constructs an Uploader.
func NewUploader(cfg UploaderConfig) (*Uploader, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{store: cfg.Store, clock: clock, logger: logger}, nil
}

// Save validates and stores one uploaded screenshot. The content type is
// sniffed from the bytes; the client-declared type and filename extension
// are taken as hints only and never trusted on their own.
func (u *Uploader) Save(data []byte, declaredType, originalName string) (UploadResult, error) {
	if len(data) == 0 {
		return UploadResult{}, ErrEmptyFile
	}
	if len(data) > MaxUploadBytes {
		return UploadResult{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	sniffed := mimetype.Detect(data)
	extension, ok := allowedImageTypes[sniffed.String()]
	if !ok {
		u.logger.Warn("upload rejected",
			zap.String("declared_type", declaredType),
			zap.String("sniffed_type", sniffed.String()))
		return UploadResult{}, fmt.Errorf("%w: %s", ErrUnsupportedType, sniffed.String())
	}

	// The sniffed format decides the stored extension; the filename only
	// picks the jpg/jpeg spelling for JPEG content.
	if extension == "jpg" && normalizedExtension(originalName) == "jpeg" {
		extension = "jpeg"
	}

	name := fmt.Sprintf("%d-%s.%s", u.clock().UnixMilli(), uuid.NewString()[:8], extension)
	url, err := u.store.Put(name, data)
	if err != nil {
		u.logger.Error("upload store failed", zap.String("stored_name", name), zap.Error(err))
		return UploadResult{}, err
	}

	return UploadResult{URL: url, StoredName: name}, nil
}

// normalizedExtension reduces the original filename to an allow-listed
// extension, or "" when it carries anything else.
func normalizedExtension(originalName string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	switch ext {
	case "png", "jpg", "jpeg", "webp", "gif":
		return ext
	default:
		return ""
	}
}
