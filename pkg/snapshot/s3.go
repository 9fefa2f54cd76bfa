package snapshot

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MaxObjectSize caps how much of an S3 export is read.
const MaxObjectSize = 256 << 20

// S3Config locates an export object. Endpoint and static keys are optional;
// without keys the default AWS credential chain applies.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Key          string `yaml:"key"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// ObjectGetter is the subset of the S3 client used by S3Source.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads an export from an S3 compatible object store.
type S3Source struct {
	client ObjectGetter
	bucket string
	key    string
}

// NewS3Source builds an S3 client from cfg.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	key := strings.TrimSpace(cfg.Key)
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 bucket and key are required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	access, secret := strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey)
	if access != "" || secret != "" {
		if access == "" || secret == "" {
			return nil, fmt.Errorf("s3 access key and secret key must be set together")
		}
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(access, secret, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init s3 config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3SourceWithClient(client, bucket, key), nil
}

// NewS3SourceWithClient wraps an existing client.
func NewS3SourceWithClient(client ObjectGetter, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

// Fetch downloads the object. The object key doubles as the format name.
func (s *S3Source) Fetch(ctx context.Context) (string, []byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return "", nil, fmt.Errorf("snapshot: get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, MaxObjectSize+1))
	if err != nil {
		return "", nil, fmt.Errorf("snapshot: read s3://%s/%s: %w", s.bucket, s.key, err)
	}
	if len(data) > MaxObjectSize {
		return "", nil, fmt.Errorf("snapshot: s3://%s/%s exceeds %d bytes", s.bucket, s.key, MaxObjectSize)
	}
	return s.key, data, nil
}
