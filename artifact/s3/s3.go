// Package s3 stores decal artifacts in an S3 compatible bucket (AWS S3,
// MinIO, ...).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/decalflow/artifact"
	"github.com/hupe1980/decalflow/core"
)

// API is the subset of *s3.Client the store uses.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Options configure a Store.
type Options struct {
	// Bucket receiving the artifacts. Required.
	Bucket string
	// Prefix is prepended to every key, e.g. "decalflow/".
	Prefix string
	// Region, e.g. "us-east-1".
	Region string
	// Endpoint overrides the service URL, e.g. "http://127.0.0.1:9000" for MinIO.
	Endpoint string
	// AccessKey and SecretKey configure static credentials. When empty the
	// client relies on credentials supplied via Client.
	AccessKey string
	SecretKey string
	// UsePathStyle addresses objects as endpoint/bucket/key.
	UsePathStyle bool
	// Client replaces the SDK client, mainly for tests.
	Client API
}

// Store implements core.ArtifactStore on S3. Keys are
// <prefix><namespace>/<artifactID>; Save returns s3://<bucket>/<key>.
type Store struct {
	client API
	bucket string
	prefix string
}

var _ core.ArtifactStore = (*Store)(nil)

// NewStore creates a Store.
func NewStore(optFns ...func(o *Options)) (*Store, error) {
	opts := Options{Region: "us-east-1"}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Bucket == "" {
		return nil, errors.New("s3 artifact store: bucket is required")
	}

	client := opts.Client
	if client == nil {
		client = s3.NewFromConfig(aws.Config{Region: opts.Region}, func(o *s3.Options) {
			if opts.Endpoint != "" {
				o.BaseEndpoint = aws.String(opts.Endpoint)
			}
			if opts.AccessKey != "" {
				o.Credentials = credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")
			}
			o.UsePathStyle = opts.UsePathStyle
		})
	}

	return &Store{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (s *Store) key(namespace, artifactID string) string {
	return s.prefix + namespace + "/" + artifactID
}

// Save uploads the artifact.
func (s *Store) Save(ctx context.Context, namespace, artifactID string, data []byte, contentType string) (string, error) {
	key := s.key(namespace, artifactID)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// Get downloads the artifact or returns artifact.ErrNotFound.
func (s *Store) Get(ctx context.Context, namespace, artifactID string) ([]byte, error) {
	key := s.key(namespace, artifactID)
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, artifact.ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer result.Body.Close()

	body, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return body, nil
}

// List returns the sorted artifact ids in the namespace.
func (s *Store) List(ctx context.Context, namespace string) ([]string, error) {
	prefix := s.key(namespace, "")
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	ids := []string{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			id := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if id != "" && !strings.Contains(id, "/") {
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the artifact or returns artifact.ErrNotFound.
func (s *Store) Delete(ctx context.Context, namespace, artifactID string) error {
	key := s.key(namespace, artifactID)
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		if isNotFound(err) {
			return artifact.ErrNotFound
		}
		return fmt.Errorf("head %s: %w", key, err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
