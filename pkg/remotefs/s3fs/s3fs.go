// Package s3fs implements remotefs.RemoteFS against Amazon S3 or an
// S3-compatible endpoint, serving range reads via the Range request header
// and retrying transient failures with exponential backoff.
package s3fs

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/smmap/internal/logger"
	"github.com/marmos91/smmap/pkg/remotefs"
)

// Config configures a FS.
type Config struct {
	Bucket          string
	Endpoint        string // non-empty for S3-compatible endpoints (MinIO, R2, ...)
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool

	MaxRetries     uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

var _ remotefs.RemoteFS = (*FS)(nil)

// FS implements remotefs.RemoteFS over a single S3 bucket.
type FS struct {
	client *s3.Client
	bucket string
	retry  retryConfig
}

type retryConfig struct {
	maxRetries     uint
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// New builds an FS, loading AWS credentials via the default provider chain
// unless static credentials are supplied in cfg.
func New(ctx context.Context, cfg Config) (*FS, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3fs: bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awscfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3fs: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awscfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	initialBackoff := cfg.InitialBackoff
	if initialBackoff == 0 {
		initialBackoff = 100 * time.Millisecond
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff == 0 {
		maxBackoff = 2 * time.Second
	}

	return &FS{
		client: client,
		bucket: cfg.Bucket,
		retry:  retryConfig{maxRetries, initialBackoff, maxBackoff},
	}, nil
}

// Open issues a HeadObject to learn the object's size and returns a handle
// that serves FetchRange via ranged GetObject calls.
func (fs *FS) Open(ctx context.Context, path string) (remotefs.RemoteFile, error) {
	head, err := fs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, fmt.Errorf("s3fs: head %s: %w", path, err)
	}
	size := int64(0)
	if head.ContentLength != nil {
		size = *head.ContentLength
	}
	return &file{fs: fs, key: path, size: size}, nil
}

type file struct {
	fs   *FS
	key  string
	size int64
}

func (f *file) Size() int64 { return f.size }

func (f *file) Close() error { return nil }

// FetchRange retrieves [start, end) via a ranged GetObject, retrying
// transient failures with exponential backoff.
func (f *file) FetchRange(ctx context.Context, start, end int64) ([]byte, error) {
	rangeStr := fmt.Sprintf("bytes=%d-%d", start, end-1)

	var lastErr error
	for attempt := 0; attempt <= int(f.fs.retry.maxRetries); attempt++ {
		if attempt > 0 {
			backoff := f.fs.backoff(attempt - 1)
			logger.DebugCtx(ctx, "s3fs: retrying range get", "attempt", attempt, "backoff", backoff, "key", f.key)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, err := f.fs.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(f.fs.bucket),
			Key:    aws.String(f.key),
			Range:  aws.String(rangeStr),
		})
		if err != nil {
			lastErr = err
			continue
		}

		data, err := io.ReadAll(result.Body)
		_ = result.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return data, nil
	}

	return nil, fmt.Errorf("s3fs: get %s range %s: %w", f.key, rangeStr, lastErr)
}

func (fs *FS) backoff(attempt int) time.Duration {
	d := fs.retry.initialBackoff << attempt
	if d > fs.retry.maxBackoff || d <= 0 {
		return fs.retry.maxBackoff
	}
	return d
}
