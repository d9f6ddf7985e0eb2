package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/blogzine/internal/db"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxUploadBytes caps a single upload when no limit is configured.
const DefaultMaxUploadBytes int64 = 32 << 20

// Upload is one file part received with a write request.
// Open may be called several times and must return the content from the start.
type Upload struct {
	Field    string
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// NewUpload wraps in-memory content as an Upload.
func NewUpload(field, filename string, data []byte) Upload {
	return Upload{
		Field:    field,
		Filename: filename,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// inspectedUpload is an upload that passed content checks and is paired with its placeholder.
type inspectedUpload struct {
	Upload
	UID         string
	ContentType string
	Kind        db.FileKind
	Width       int
	Height      int
	URL         string
}

// inspectUpload sniffs the content type and reads image dimensions. It never trusts the
// client supplied content type or extension.
func inspectUpload(upload Upload, maxBytes int64) (*inspectedUpload, error) {
	if upload.Open == nil {
		return nil, invalidField(upload.Field, "upload has no content")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if upload.Size > maxBytes {
		return nil, invalidField(upload.Field, fmt.Sprintf("file exceeds %d bytes", maxBytes))
	}

	rc, err := upload.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", upload.Field, err)
	}
	detected, err := mimetype.DetectReader(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("sniff upload %s: %w", upload.Field, err)
	}

	contentType := detected.String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}

	inspected := &inspectedUpload{Upload: upload, ContentType: contentType}
	switch {
	case strings.HasPrefix(contentType, "image/"):
		inspected.Kind = db.FileKindImage
		inspected.Width, inspected.Height = imageDimensions(upload)
	case strings.HasPrefix(contentType, "video/"):
		inspected.Kind = db.FileKindVideo
	default:
		return nil, invalidField(upload.Field, "only image and video uploads are accepted, got "+contentType)
	}

	if inspected.Filename == "" || !strings.Contains(inspected.Filename, ".") {
		inspected.Filename = upload.Field + detected.Extension()
	}
	return inspected, nil
}

// imageDimensions returns 0, 0 for formats without a registered decoder (svg, heic).
func imageDimensions(upload Upload) (int, int) {
	rc, err := upload.Open()
	if err != nil {
		return 0, 0
	}
	defer rc.Close()

	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

// pairUploads matches uploads to placeholders by upload field name; every upload needs exactly
// one placeholder entry and every entry needs an upload.
func pairUploads(uploads []Upload, placeholders map[string]string, maxBytes int64) ([]*inspectedUpload, error) {
	if len(uploads) == 0 && len(placeholders) == 0 {
		return nil, nil
	}
	if len(uploads) != len(placeholders) {
		return nil, invalidField(FieldFilePlaceholders,
			fmt.Sprintf("got %d uploads but %d placeholders", len(uploads), len(placeholders)))
	}

	seen := make(map[string]struct{}, len(uploads))
	paired := make([]*inspectedUpload, 0, len(uploads))
	for _, upload := range uploads {
		if _, dup := seen[upload.Field]; dup {
			return nil, invalidField(FieldFilePlaceholders, "upload field "+upload.Field+" appears more than once")
		}
		seen[upload.Field] = struct{}{}

		uid, ok := placeholders[upload.Field]
		if !ok {
			return nil, invalidField(FieldFilePlaceholders, "no placeholder for upload "+upload.Field)
		}

		inspected, err := inspectUpload(upload, maxBytes)
		if err != nil {
			return nil, err
		}
		inspected.UID = uid
		paired = append(paired, inspected)
	}
	return paired, nil
}
