package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/joocer/s1/internal/domain"
)

var _ domain.ObjectStore = (*S3Store)(nil)

// S3Store reads objects from an S3-compatible service.
type S3Store struct {
	client *s3.Client
}

// S3Options configures NewS3Store.
type S3Options struct {
	Endpoint     string // host[:port] or URL; empty uses AWS
	Region       string
	KeyID        string
	Secret       string
	UsePathStyle bool
}

// NewS3Store builds a client from opts. Without a key pair requests are sent
// unsigned.
func NewS3Store(opts S3Options) *S3Store {
	o := s3.Options{
		Region:       opts.Region,
		UsePathStyle: opts.UsePathStyle,
	}
	if opts.KeyID != "" && opts.Secret != "" {
		o.Credentials = credentials.NewStaticCredentialsProvider(opts.KeyID, opts.Secret, "")
	} else {
		o.Credentials = aws.AnonymousCredentials{}
	}
	if opts.Endpoint != "" {
		endpoint := opts.Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		o.BaseEndpoint = aws.String(endpoint)
	}
	return &S3Store{client: s3.New(o)}
}

// Fetch reads the whole object.
func (s *S3Store) Fetch(ctx context.Context, bucket, path string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, s3Error(bucket, path, err)
	}
	defer out.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, path, err)
	}
	return data, nil
}

// Stat issues a HeadObject.
func (s *S3Store) Stat(ctx context.Context, bucket, path string) (domain.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return domain.ObjectInfo{}, s3Error(bucket, path, err)
	}
	return domain.ObjectInfo{
		Key:          path,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified).UTC(),
		ETag:         aws.ToString(out.ETag),
	}, nil
}

// List pages through ListObjectsV2 for prefix.
func (s *S3Store) List(ctx context.Context, bucket, prefix string) ([]domain.ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	var out []domain.ObjectInfo
	p := s3.NewListObjectsV2Paginator(s.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, s3Error(bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			out = append(out, domain.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified).UTC(),
				ETag:         aws.ToString(obj.ETag),
			})
		}
	}
	return out, nil
}

func s3Error(bucket, path string, err error) error {
	var (
		noKey    *types.NoSuchKey
		noBucket *types.NoSuchBucket
		missing  *types.NotFound
		apiErr   smithy.APIError
	)
	switch {
	case errors.As(err, &noKey), errors.As(err, &missing):
		return notFound(bucket, path)
	case errors.As(err, &noBucket):
		return domain.ErrNotFound("bucket %s not found", bucket)
	case errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound":
		return notFound(bucket, path)
	default:
		return fmt.Errorf("s3://%s/%s: %w", bucket, path, err)
	}
}
