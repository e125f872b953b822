package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"socialapi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"my holiday pic.png", "my-holiday-pic.png"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\doc.pdf`, "doc.pdf"},
		{"ünïcode.gif", "n-code.gif"},
		{"...", "file"},
		{"", "file"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeName(tt.in))
		})
	}
}

func TestObjectKey(t *testing.T) {
	a := ObjectKey("cat.png")
	b := ObjectKey("cat.png")

	assert.True(t, strings.HasPrefix(a, "uploads/"))
	assert.True(t, strings.HasSuffix(a, "-cat.png"))
	assert.NotEqual(t, a, b)
}

func TestSanitizeName_TruncatesKeepingExtension(t *testing.T) {
	got := sanitizeName(strings.Repeat("a", 300) + ".jpeg")
	assert.Len(t, got, maxNameLen)
	assert.True(t, strings.HasSuffix(got, ".jpeg"))
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestS3Presigner_PresignUpload(t *testing.T) {
	p, err := NewS3Presigner(context.Background(), S3Config{
		Region:          "eu-west-1",
		Bucket:          "media",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	p.now = fixedClock

	up, err := p.PresignUpload(context.Background(), UploadRequest{FileName: "a b.png", ContentType: "image/png"})
	require.NoError(t, err)

	u, err := url.Parse(up.UploadURL)
	require.NoError(t, err)
	assert.Equal(t, "media.s3.eu-west-1.amazonaws.com", u.Host)
	assert.Equal(t, "/"+up.Key, u.Path)
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	signed := strings.Split(u.Query().Get("X-Amz-SignedHeaders"), ";")
	assert.Contains(t, signed, "content-type")
	assert.Contains(t, signed, "host")

	assert.True(t, strings.HasSuffix(up.Key, "-a-b.png"))
	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com/"+up.Key, up.FinalURL)
	assert.Equal(t, fixedClock().Add(5*time.Minute), up.ExpiresAt)
}

func TestS3Presigner_CustomEndpointUsesPathStyle(t *testing.T) {
	p, err := NewS3Presigner(context.Background(), S3Config{
		Region:          "us-east-1",
		Bucket:          "media",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		Endpoint:        "http://localhost:9000",
		PublicBaseURL:   "https://cdn.example.com/",
	})
	require.NoError(t, err)

	up, err := p.PresignUpload(context.Background(), UploadRequest{FileName: "x.mp4", ContentType: "video/mp4"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(up.UploadURL, "http://localhost:9000/media/uploads/"))
	assert.Equal(t, "https://cdn.example.com/"+up.Key, up.FinalURL)
}

func TestS3Presigner_RequiresContentType(t *testing.T) {
	p, err := NewS3Presigner(context.Background(), S3Config{
		Region: "us-east-1", Bucket: "media", AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	_, err = p.PresignUpload(context.Background(), UploadRequest{FileName: "x.png"})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	_, err = p.PresignUpload(context.Background(), UploadRequest{ContentType: "image/png"})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}

func TestMinioPresigner_PresignUpload(t *testing.T) {
	p, err := NewMinioPresigner(MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio-secret",
		Bucket:    "media",
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	p.now = fixedClock

	up, err := p.PresignUpload(context.Background(), UploadRequest{FileName: "clip.mov"})
	require.NoError(t, err)

	u, err := url.Parse(up.UploadURL)
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/media/"+up.Key, u.Path)
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	assert.Equal(t, "http://localhost:9000/media/"+up.Key, up.FinalURL)
	assert.Equal(t, fixedClock().Add(UploadExpiry), up.ExpiresAt)
}

func TestMinioPresigner_SignsDeclaredContentType(t *testing.T) {
	p, err := NewMinioPresigner(MinioConfig{
		Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "media", Region: "us-east-1",
	})
	require.NoError(t, err)

	up, err := p.PresignUpload(context.Background(), UploadRequest{FileName: "a.png", ContentType: "image/png"})
	require.NoError(t, err)
	u, err := url.Parse(up.UploadURL)
	require.NoError(t, err)
	assert.Equal(t, "content-type;host", u.Query().Get("X-Amz-SignedHeaders"))

	up, err = p.PresignUpload(context.Background(), UploadRequest{FileName: "a.png"})
	require.NoError(t, err)
	u, err = url.Parse(up.UploadURL)
	require.NoError(t, err)
	assert.Equal(t, "host", u.Query().Get("X-Amz-SignedHeaders"))
}

func TestMinioPresigner_RequiresFileName(t *testing.T) {
	p, err := NewMinioPresigner(MinioConfig{
		Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "media", Region: "us-east-1",
	})
	require.NoError(t, err)

	_, err = p.PresignUpload(context.Background(), UploadRequest{FileName: "  "})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}
