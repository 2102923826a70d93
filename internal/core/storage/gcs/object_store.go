// Package gcs stores avatar objects in Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"

	"github.com/duynhne/profile-service/config"
	"github.com/duynhne/profile-service/middleware"
)

// ObjectStore implements domain.ObjectStore on a single bucket.
type ObjectStore struct {
	client  *storage.Client
	bucket  string
	baseURL string
	timeout time.Duration
}

// New creates the storage client once at startup. With cfg.Endpoint set
// (e.g. fake-gcs-server in local setups) requests are sent unauthenticated.
func New(ctx context.Context, cfg *config.StorageConfig, timeout time.Duration) (*ObjectStore, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}

	return &ObjectStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		timeout: timeout,
	}, nil
}

// Upload writes data to objectPath, replacing any existing object, and
// returns its public URL.
func (s *ObjectStore) Upload(ctx context.Context, data []byte, objectPath, contentType string) (string, error) {
	ctx, span := middleware.StartSpan(ctx, "storage.upload", trace.WithAttributes(
		attribute.String("layer", "storage"),
		attribute.String("storage.bucket", s.bucket),
		attribute.String("storage.object", objectPath),
		attribute.Int("storage.size", len(data)),
	))
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	w := s.client.Bucket(s.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=300"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		middleware.ObserveAvatarUpload("error", time.Since(start))
		span.RecordError(err)
		return "", fmt.Errorf("write object %s/%s: %w", s.bucket, objectPath, err)
	}
	// The object is only committed once Close succeeds.
	if err := w.Close(); err != nil {
		middleware.ObserveAvatarUpload("error", time.Since(start))
		span.RecordError(err)
		return "", fmt.Errorf("commit object %s/%s: %w", s.bucket, objectPath, err)
	}
	middleware.ObserveAvatarUpload("ok", time.Since(start))

	return objectURL(s.baseURL, s.bucket, objectPath), nil
}

// Close releases the underlying client.
func (s *ObjectStore) Close() error {
	return s.client.Close()
}

// objectURL builds https://storage.googleapis.com/{bucket}/{object} style links.
func objectURL(baseURL, bucket, objectPath string) string {
	segments := strings.Split(objectPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return baseURL + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
