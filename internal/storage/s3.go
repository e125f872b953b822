package storage

import (
	"context"
	"fmt"
	"time"

	"socialapi/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// S3Config configures S3Presigner. Endpoint selects an S3-compatible service
// with path-style addressing; empty means AWS. Without static keys the
// default AWS credential chain is used.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	PublicBaseURL   string
}

// S3Presigner presigns PUT requests with aws-sdk-go-v2.
type S3Presigner struct {
	presign *s3.PresignClient
	bucket  string
	baseURL string
	now     func() time.Time
}

// NewS3Presigner loads AWS configuration and builds a presign client.
func NewS3Presigner(ctx context.Context, cfg S3Config) (*S3Presigner, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = joinURL(cfg.Endpoint, cfg.Bucket)
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &S3Presigner{
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		baseURL: baseURL,
		now:     time.Now,
	}, nil
}

// PresignUpload returns a URL for a single PUT of the named object.
// Content-Type is part of the signature, so S3 rejects an upload whose
// type differs from the declared one.
func (p *S3Presigner) PresignUpload(ctx context.Context, req UploadRequest) (*PresignedUpload, error) {
	if err := validateRequest(req, true); err != nil {
		return nil, err
	}
	key := ObjectKey(req.FileName)
	issued := p.now()

	signed, err := p.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(req.ContentType),
	}, s3.WithPresignExpires(UploadExpiry), s3.WithPresignClientFromClientOptions(func(o *s3.Options) {
		o.APIOptions = append(o.APIOptions, signContentType(req.ContentType))
	}))
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("presign s3 upload: %w", err))
	}

	return &PresignedUpload{
		UploadURL: signed.URL,
		FinalURL:  joinURL(p.baseURL, key),
		Key:       key,
		ExpiresAt: issued.Add(UploadExpiry),
	}, nil
}

// signContentType pins the Content-Type header on the request before the
// presign step so it lands in X-Amz-SignedHeaders.
func signContentType(contentType string) func(*middleware.Stack) error {
	return func(stack *middleware.Stack) error {
		return stack.Build.Add(middleware.BuildMiddlewareFunc("SignContentType",
			func(ctx context.Context, in middleware.BuildInput, next middleware.BuildHandler) (middleware.BuildOutput, middleware.Metadata, error) {
				if r, ok := in.Request.(*smithyhttp.Request); ok {
					r.Header.Set("Content-Type", contentType)
				}
				return next.HandleBuild(ctx, in)
			}), middleware.After)
	}
}
