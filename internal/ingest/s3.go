package ingest

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// ObjectAPI is the slice of the S3 API the source needs.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Source reads an extract object from a bucket. The key may name a
// single object, or end in "/" to name a drop prefix from which the
// most recently modified object is taken.
type S3Source struct {
	client ObjectAPI
	bucket string
	key    string
}

// NewS3Source builds a source against the real S3 API using the default
// credential chain.
func NewS3Source(ctx context.Context, cfg config.IngestConfig) (*S3Source, error) {
	if cfg.S3Bucket == "" || cfg.S3Key == "" {
		return nil, &domain.ConfigurationError{
			Field:  "ingest.s3_bucket",
			Reason: "s3 source needs both a bucket and a key",
		}
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewS3SourceWithClient(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Key), nil
}

// NewS3SourceWithClient injects the S3 API, real or fake.
func NewS3SourceWithClient(client ObjectAPI, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, string, error) {
	key := s.key
	if strings.HasSuffix(key, "/") {
		latest, err := s.latestKey(ctx, key)
		if err != nil {
			return nil, "", err
		}
		key = latest
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", &domain.DownstreamUnavailableError{
			System: "s3",
			Err:    fmt.Errorf("get s3://%s/%s: %w", s.bucket, key, err),
		}
	}
	return out.Body, path.Base(key), nil
}

// latestKey scans a drop prefix for the newest object by LastModified.
// On a timestamp tie the lexically greater key wins, so extracts named
// by date stay deterministic. Folder marker keys are skipped.
func (s *S3Source) latestKey(ctx context.Context, prefix string) (string, error) {
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	var (
		latest   string
		modified time.Time
	)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return "", &domain.DownstreamUnavailableError{
				System: "s3",
				Err:    fmt.Errorf("list s3://%s/%s: %w", s.bucket, prefix, err),
			}
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			when := aws.ToTime(obj.LastModified)
			if when.After(modified) || (when.Equal(modified) && key > latest) {
				latest, modified = key, when
			}
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no extract objects under s3://%s/%s", s.bucket, prefix)
	}
	return latest, nil
}
