// Package storage issues presigned upload URLs for S3 and MinIO so that
// clients upload media directly to the bucket.
package storage

import (
	"context"
	"strings"
	"time"
	"unicode"

	"socialapi/internal/models"

	"github.com/google/uuid"
)

// UploadExpiry is how long a presigned upload URL stays valid.
const UploadExpiry = 5 * time.Minute

const maxNameLen = 100

// UploadRequest describes the object a client wants to upload.
type UploadRequest struct {
	FileName    string `json:"file_name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"omitempty,max=127"`
}

// PresignedUpload is returned to the client. UploadURL accepts a single PUT
// until ExpiresAt; FinalURL is where the object is readable afterwards.
type PresignedUpload struct {
	UploadURL string    `json:"upload_url"`
	FinalURL  string    `json:"final_url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Presigner issues presigned PUT URLs.
type Presigner interface {
	PresignUpload(ctx context.Context, req UploadRequest) (*PresignedUpload, error)
}

// ObjectKey builds a collision-free key under uploads/ that keeps a readable
// form of the original file name.
func ObjectKey(fileName string) string {
	return "uploads/" + uuid.NewString() + "-" + sanitizeName(fileName)
}

func sanitizeName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), ".-")
	if len(out) > maxNameLen {
		out = out[len(out)-maxNameLen:]
	}
	if out == "" {
		return "file"
	}
	return out
}

func validateRequest(req UploadRequest, requireContentType bool) error {
	if strings.TrimSpace(req.FileName) == "" {
		return models.NewValidationError("file_name is required")
	}
	if requireContentType && strings.TrimSpace(req.ContentType) == "" {
		return models.NewValidationError("content_type is required")
	}
	return nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
