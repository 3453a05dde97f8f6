package ingest

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

type fakeObjectAPI struct {
	body    string
	err     error
	listErr error
	objects []types.Object
	bucket  string
	key     string
	prefix  string
}

func (f *fakeObjectAPI) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket = *params.Bucket
	f.key = *params.Key
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func (f *fakeObjectAPI) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.prefix = aws.ToString(params.Prefix)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &s3.ListObjectsV2Output{Contents: f.objects}, nil
}

func TestS3SourceOpen(t *testing.T) {
	fake := &fakeObjectAPI{body: "idPelanggan,hargaPelanggan\nC-1,5.000.000\n"}
	src := NewS3SourceWithClient(fake, "cvo-extracts", "monthly/2025-06.csv")

	rc, name, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if name != "2025-06.csv" {
		t.Errorf("name = %q, want 2025-06.csv", name)
	}
	if fake.bucket != "cvo-extracts" || fake.key != "monthly/2025-06.csv" {
		t.Errorf("requested s3://%s/%s, want s3://cvo-extracts/monthly/2025-06.csv", fake.bucket, fake.key)
	}
	if got := readAll(t, rc); got != fake.body {
		t.Errorf("content = %q, want %q", got, fake.body)
	}
}

func TestS3SourcePrefixPicksNewest(t *testing.T) {
	fake := &fakeObjectAPI{
		body: "idPelanggan,hargaPelanggan\nC-1,5.000.000\n",
		objects: []types.Object{
			{Key: aws.String("drops/")},
			{Key: aws.String("drops/2025-05.csv"), LastModified: aws.Time(time.Date(2025, 5, 31, 3, 0, 0, 0, time.UTC))},
			{Key: aws.String("drops/2025-06.csv"), LastModified: aws.Time(time.Date(2025, 6, 30, 3, 0, 0, 0, time.UTC))},
		},
	}
	src := NewS3SourceWithClient(fake, "cvo-extracts", "drops/")

	rc, name, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()

	if fake.prefix != "drops/" {
		t.Errorf("listed prefix %q, want drops/", fake.prefix)
	}
	if fake.key != "drops/2025-06.csv" {
		t.Errorf("fetched key %q, want drops/2025-06.csv", fake.key)
	}
	if name != "2025-06.csv" {
		t.Errorf("name = %q, want 2025-06.csv", name)
	}
}

func TestS3SourcePrefixEmpty(t *testing.T) {
	fake := &fakeObjectAPI{}
	src := NewS3SourceWithClient(fake, "cvo-extracts", "drops/")

	_, _, err := src.Open(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no extract objects") {
		t.Errorf("error = %v, want no extract objects", err)
	}
}

func TestS3SourceUnavailable(t *testing.T) {
	fake := &fakeObjectAPI{err: errors.New("connection reset")}
	src := NewS3SourceWithClient(fake, "cvo-extracts", "monthly/2025-06.csv")

	_, _, err := src.Open(context.Background())
	var unavailable *domain.DownstreamUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("error = %v, want DownstreamUnavailableError", err)
	}
	if unavailable.System != "s3" {
		t.Errorf("System = %q, want s3", unavailable.System)
	}
}

func TestNewS3SourceNeedsBucketAndKey(t *testing.T) {
	_, err := NewS3Source(context.Background(), config.IngestConfig{S3Key: "monthly/2025-06.csv"})
	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("error = %v, want ConfigurationError", err)
	}
}
