// Package storage provides blob store implementations for the service's
// JSON documents.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/jsamuelsen/stoic-reflections/internal/domain"
)

const jsonContentType = "application/json"

// S3Config holds settings for the S3-backed store.
type S3Config struct {
	Bucket string

	// Region overrides the SDK's default region resolution when set.
	Region string

	// Endpoint points the client at an S3-compatible server (minio,
	// localstack). UsePathStyle is usually required with it.
	Endpoint     string
	UsePathStyle bool
}

// S3Store keeps each document as one object and maps S3 ETags onto
// revisions, so conditional writes catch concurrent updates.
type S3Store struct {
	client *s3.Client
	bucket string
	logger *slog.Logger
}

// NewS3Store builds a store using the SDK's default credential chain.
func NewS3Store(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3StoreWithClient(client, cfg.Bucket, logger), nil
}

// NewS3StoreWithClient builds a store around an existing client.
func NewS3StoreWithClient(client *s3.Client, bucket string, logger *slog.Logger) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		logger: logger,
	}
}

// Get fetches a document and its current revision.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, domain.Revision, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, "", domain.NewNotFoundError("document", key)
		}

		return nil, "", fmt.Errorf("getting s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading s3://%s/%s: %w", s.bucket, key, err)
	}

	s.logger.DebugContext(ctx, "document fetched",
		slog.String("key", key),
		slog.Int("bytes", len(data)),
	)

	return data, revisionFromETag(out.ETag), nil
}

// Put stores a document, conditionally when a revision is supplied.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, revision domain.Revision) (domain.Revision, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(jsonContentType),
	}
	if revision != "" {
		input.IfMatch = aws.String(string(revision))
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		if isPreconditionFailed(err) {
			return "", domain.NewStaleWriteError(key, revision)
		}

		return "", fmt.Errorf("putting s3://%s/%s: %w", s.bucket, key, err)
	}

	s.logger.DebugContext(ctx, "document stored",
		slog.String("key", key),
		slog.Int("bytes", len(data)),
	)

	return revisionFromETag(out.ETag), nil
}

// Name implements ports.HealthChecker.
func (s *S3Store) Name() string {
	return "blob-store"
}

// Check probes the bucket. Implements ports.HealthChecker.
func (s *S3Store) Check(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("probing bucket %q: %w", s.bucket, err)
	}

	return nil
}

// isPreconditionFailed reports whether the error is S3 rejecting a
// conditional write. ConditionalRequestConflict covers two conditional
// writes racing; the loser should re-read either way.
func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	default:
		return false
	}
}

func revisionFromETag(etag *string) domain.Revision {
	if etag == nil {
		return ""
	}

	return domain.Revision(*etag)
}
