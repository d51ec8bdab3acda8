package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ArtifactSink stores named export artifacts and returns where each one ended up.
type ArtifactSink interface {
	Put(ctx context.Context, name string, body []byte, contentType string) (string, error)
}

// NewBaseName returns a unique artifact base name with the given prefix.
func NewBaseName(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("could not generate artifact id: %w", err)
	}
	if prefix == "" {
		return id, nil
	}

	return prefix + "_" + id, nil
}

// LocalSink writes artifacts below a directory on disk. Absolute names, and
// any name when Dir is empty, are used as paths as they are.
type LocalSink struct {
	Dir string
}

// Put implements ArtifactSink.
func (s LocalSink) Put(_ context.Context, name string, body []byte, _ string) (string, error) {
	p := filepath.Clean(name)
	if s.Dir != "" && !filepath.IsAbs(p) {
		p = filepath.Join(s.Dir, p)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("could not create artifact directory: %w", err)
	}
	if err := os.WriteFile(p, body, 0o644); err != nil { //nolint: gosec
		return "", fmt.Errorf("could not write artifact %s: %w", p, err)
	}

	return p, nil
}

// S3PutAPI is the part of the S3 client used by S3Sink.
type S3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configure the S3 client. Endpoint is optional and points the
// client to an S3 compatible store such as MinIO.
type S3Options struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Client builds a path-style S3 client from static credentials.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loaders := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.Endpoint != "" {
		loaders = append(loaders, config.WithBaseEndpoint(opts.Endpoint))
	}
	if opts.AccessKey != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("could not load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// S3Sink uploads artifacts to a bucket under an optional key prefix.
type S3Sink struct {
	client S3PutAPI
	bucket string
	prefix string
}

// NewS3Sink creates a sink writing to bucket through client.
func NewS3Sink(client S3PutAPI, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Put implements ArtifactSink. The returned location is an s3:// URI.
func (s *S3Sink) Put(ctx context.Context, name string, body []byte, contentType string) (string, error) {
	key := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(name)), "/")
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("could not upload artifact %s: %w", key, err)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
