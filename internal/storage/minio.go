package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"socialapi/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig configures MinioPresigner. Endpoint is host[:port] without a scheme.
type MinioConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	Region        string
	PublicBaseURL string
}

// MinioPresigner presigns PUT requests against a MinIO server.
type MinioPresigner struct {
	client  *minio.Client
	bucket  string
	baseURL string
	now     func() time.Time
}

// NewMinioPresigner builds a client. Setting Region keeps presigning offline;
// otherwise minio-go looks the bucket location up on first use.
func NewMinioPresigner(cfg MinioConfig) (*MinioPresigner, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &MinioPresigner{client: client, bucket: cfg.Bucket, baseURL: baseURL, now: time.Now}, nil
}

// PresignUpload returns a URL for a single PUT of the named object. A
// declared content type is signed into the URL.
func (p *MinioPresigner) PresignUpload(ctx context.Context, req UploadRequest) (*PresignedUpload, error) {
	if err := validateRequest(req, false); err != nil {
		return nil, err
	}
	key := ObjectKey(req.FileName)
	issued := p.now()

	var headers http.Header
	if req.ContentType != "" {
		headers = http.Header{"Content-Type": []string{req.ContentType}}
	}
	u, err := p.client.PresignHeader(ctx, http.MethodPut, p.bucket, key, UploadExpiry, nil, headers)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("presign minio upload: %w", err))
	}

	return &PresignedUpload{
		UploadURL: u.String(),
		FinalURL:  joinURL(p.baseURL, key),
		Key:       key,
		ExpiresAt: issued.Add(UploadExpiry),
	}, nil
}
