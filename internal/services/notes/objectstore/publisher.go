// Package objectstore publishes narration audio to an S3-compatible bucket
// and owns the lifecycle of those objects.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// ErrNotFound indicates the object does not exist in the bucket.
var ErrNotFound = errors.New("object not found")

// Bucket is the subset of the S3 API the publisher calls.
type Bucket interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// PublisherConfig names the bucket and the public base URL objects are served from.
type PublisherConfig struct {
	Bucket    string
	PublicURL string
	// Timeout bounds one bucket call. Zero disables it.
	Timeout time.Duration
}

// Publisher uploads and deletes named blobs.
type Publisher struct {
	client    Bucket
	bucket    string
	publicURL string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewPublisher builds a Publisher over client.
func NewPublisher(client Bucket, cfg PublisherConfig, logger *zap.Logger) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("bucket client is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	publicURL := strings.TrimRight(strings.TrimSpace(cfg.PublicURL), "/")
	if publicURL == "" {
		return nil, errors.New("public url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		client:    client,
		bucket:    bucket,
		publicURL: publicURL,
		timeout:   cfg.Timeout,
		logger:    logger,
	}, nil
}

// URL returns the public URL of key.
func (p *Publisher) URL(key string) string {
	return p.publicURL + "/" + escapeComponent(key)
}

// escapeComponent escapes key as a single URL component, spaces as %20.
func escapeComponent(key string) string {
	return strings.ReplaceAll(url.QueryEscape(key), "+", "%20")
}

// Publish uploads data under key, replacing any existing object, and
// returns its public URL.
func (p *Publisher) Publish(ctx context.Context, data []byte, key string, contentType string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("object key is required")
	}
	ctx, cancel := p.callContext(ctx)
	defer cancel()

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(p.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(data),
		ContentLength:      aws.Int64(int64(len(data))),
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String("inline"),
		Metadata:           map[string]string{"cache-control": "no-transform"},
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return p.URL(key), nil
}

// Remove deletes key. A missing object is logged and not reported.
func (p *Publisher) Remove(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("object key is required")
	}
	ctx, cancel := p.callContext(ctx)
	defer cancel()

	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if IsNotFound(err) {
			p.logger.Warn("object not found for deletion", zap.String("key", key))
			return nil
		}
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (p *Publisher) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout > 0 {
		return context.WithTimeout(ctx, p.timeout)
	}
	return ctx, func() {}
}

// IsNotFound reports whether err means the object is absent.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
