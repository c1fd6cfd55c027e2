package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
	"github.com/alexberardi/jarvis-ocr-service/internal/infra"
)

// MinioFetcher fetches objects through the S3-compatible minio client. It
// serves both the s3 and minio reference kinds; MinIO deployments configure
// a custom endpoint and path-style addressing.
type MinioFetcher struct {
	client *minio.Client
}

// NewMinioFetcher builds a fetcher from the object-store configuration.
// With no endpoint configured it targets AWS S3 in the configured region.
func NewMinioFetcher(cfg *infra.Config) (*MinioFetcher, error) {
	endpoint := cfg.S3Endpoint
	secure := true
	if endpoint == "" {
		endpoint = "s3." + cfg.S3Region + ".amazonaws.com"
	} else {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse S3 endpoint: %w", err)
		}
		secure = u.Scheme != "http"
		endpoint = u.Host
	}

	var creds *credentials.Credentials
	if cfg.S3AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, "")
	} else {
		creds = credentials.NewEnvAWS()
	}

	lookup := minio.BucketLookupAuto
	if cfg.S3ForcePathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:        creds,
		Secure:       secure,
		Region:       cfg.S3Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	return &MinioFetcher{client: client}, nil
}

// Fetch downloads bucket/key in full. Missing objects map to
// domain.ErrImageNotFound; everything else is a job-level transient.
func (f *MinioFetcher) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := f.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyObjectErr(bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classifyObjectErr(bucket, key, err)
	}
	return data, nil
}

func classifyObjectErr(bucket, key string, err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		if resp.StatusCode == http.StatusNotFound || strings.HasPrefix(resp.Code, "NoSuch") {
			return fmt.Errorf("%w: s3://%s/%s", domain.ErrImageNotFound, bucket, key)
		}
	}
	return domain.Transient(fmt.Errorf("fetch s3://%s/%s: %w", bucket, key, err))
}
