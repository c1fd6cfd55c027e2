// Package resolver turns image references into in-memory bytes with a
// sniffed media type. Failures are classified so the pipeline can tell
// per-image problems from job-level transients.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
)

// ObjectFetcher retrieves one object from an S3-compatible store.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

// BlobStore is the collaborator interface behind "db" image references.
type BlobStore interface {
	Blob(ctx context.Context, id string) ([]byte, error)
}

// Resolver fetches image bytes for every supported reference kind.
type Resolver struct {
	localRoot  string
	objects    ObjectFetcher
	blobs      BlobStore
	httpClient *http.Client
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithObjectFetcher wires the S3/MinIO backend.
func WithObjectFetcher(f ObjectFetcher) Option {
	return func(r *Resolver) { r.objects = f }
}

// WithBlobStore wires the database blob backend.
func WithBlobStore(b BlobStore) Option {
	return func(r *Resolver) { r.blobs = b }
}

// WithHTTPClient overrides the client used for HTTP(S) references.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.httpClient = c }
}

// New creates a resolver rooted at localRoot for local_path references.
func New(localRoot string, opts ...Option) *Resolver {
	r := &Resolver{
		localRoot:  filepath.Clean(localRoot),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches the referenced image and sniffs its media type. PDFs and
// other non-image payloads are rejected with domain.ErrUnsupportedMedia.
func (r *Resolver) Resolve(ctx context.Context, ref domain.ImageRef) ([]byte, string, error) {
	var (
		data []byte
		err  error
	)
	switch ref.Kind {
	case domain.RefKindLocalPath:
		data, err = r.resolveLocal(ref.Value)
	case domain.RefKindS3, domain.RefKindMinIO:
		data, err = r.resolveObject(ctx, ref.Value)
	case domain.RefKindDB:
		data, err = r.resolveBlob(ctx, ref.Value)
	default:
		err = fmt.Errorf("%w: unknown reference kind %q", domain.ErrImageNotFound, ref.Kind)
	}
	if err != nil {
		return nil, "", err
	}

	mediaType := http.DetectContentType(data)
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, "", fmt.Errorf("%w: %s", domain.ErrUnsupportedMedia, mediaType)
	}
	return data, mediaType, nil
}

func (r *Resolver) resolveLocal(value string) ([]byte, error) {
	path := value
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.localRoot, path)
	}
	path = filepath.Clean(path)
	if path != r.localRoot && !strings.HasPrefix(path, r.localRoot+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: path escapes image root", domain.ErrImageNotFound)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrImageNotFound, value)
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrImageNotFound, value, err)
	}
	return data, nil
}

func (r *Resolver) resolveObject(ctx context.Context, value string) ([]byte, error) {
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return r.resolveHTTP(ctx, value)
	}

	uri := value
	// MinIO is S3-compatible; the scheme only differs.
	uri = strings.TrimPrefix(uri, "minio://")
	uri = strings.TrimPrefix(uri, "s3://")
	if uri == value {
		return nil, fmt.Errorf("%w: unsupported object URI %q", domain.ErrImageNotFound, value)
	}

	bucket, key, ok := strings.Cut(uri, "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("%w: malformed object URI %q", domain.ErrImageNotFound, value)
	}
	if r.objects == nil {
		return nil, domain.Transient(fmt.Errorf("object store not configured for %q", value))
	}
	return r.objects.Fetch(ctx, bucket, key)
}

func (r *Resolver) resolveHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrImageNotFound, url)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, domain.Transient(fmt.Errorf("fetch %s: %w", url, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrImageNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return nil, domain.Transient(fmt.Errorf("fetch %s: status %d", url, resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Transient(fmt.Errorf("read %s: %w", url, err))
	}
	return data, nil
}

func (r *Resolver) resolveBlob(ctx context.Context, id string) ([]byte, error) {
	if r.blobs == nil {
		return nil, fmt.Errorf("%w: blob store not configured", domain.ErrImageNotFound)
	}
	return r.blobs.Blob(ctx, id)
}
