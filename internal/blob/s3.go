package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/MarcoPoloResearchLab/portfolio/internal/ids"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultS3Region = "us-east-1"

// S3Config configures an S3Store. Logical buckets map to key prefixes inside one
// physical bucket.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string // optional, e.g. MinIO
	AccessKeyID     string // optional, falls back to the default credential chain
	SecretAccessKey string
	PathStyle       bool
	PublicBaseURL   string // optional CDN or website endpoint for view URLs
	IDProvider      ids.Provider
}

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store implements Store on an S3 compatible bucket.
type S3Store struct {
	client     s3API
	bucket     string
	region     string
	endpoint   string
	publicBase string
	idProvider ids.Provider
}

// NewS3 loads AWS configuration and builds an S3Store.
func NewS3(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("blob: s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = defaultS3Region
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3Store(client, cfg, region), nil
}

func newS3Store(client s3API, cfg S3Config, region string) *S3Store {
	provider := cfg.IDProvider
	if provider == nil {
		provider = ids.NewUUIDProvider()
	}
	return &S3Store{
		client:     client,
		bucket:     cfg.Bucket,
		region:     region,
		endpoint:   cfg.Endpoint,
		publicBase: cfg.PublicBaseURL,
		idProvider: provider,
	}
}

func (s *S3Store) Driver() Driver { return DriverS3 }

func (s *S3Store) Upload(ctx context.Context, bucket string, file File) (string, error) {
	blobID, err := newBlobID(s.idProvider, file.Name)
	if err != nil {
		return "", err
	}
	if err := validateNames(bucket, blobID); err != nil {
		return "", err
	}
	// Uploads are capped by Policy, so buffering keeps the body seekable for signing.
	data, err := io.ReadAll(file.Body)
	if err != nil {
		return "", err
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey(bucket, blobID)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if file.ContentType != "" {
		input.ContentType = aws.String(file.ContentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", err
	}
	return blobID, nil
}

func (s *S3Store) Delete(ctx context.Context, bucket, blobID string) error {
	if err := validateNames(bucket, blobID); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(bucket, blobID)),
	})
	return err
}

func (s *S3Store) ViewURL(bucket, blobID string) string {
	key := objectKey(bucket, blobID)
	switch {
	case s.publicBase != "":
		return joinURL(s.publicBase, key)
	case s.endpoint != "":
		return joinURL(s.endpoint, s.bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	}
}

func objectKey(bucket, blobID string) string {
	return bucket + "/" + blobID
}
