package checker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/hazz-dev/conncheck/internal/config"
)

const (
	minioService = "MinIO"
	minioClient  = "go-aws-s3"
)

// objectAPI is the part of *s3.Client the round-trip uses.
type objectAPI interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type minioChecker struct {
	cfg       config.MinIO
	gate      Gate
	newClient func(ctx context.Context, cfg config.MinIO) (objectAPI, error)
}

func newMinIOChecker(cfg config.MinIO, opts Options) *minioChecker {
	return &minioChecker{
		cfg:       cfg,
		gate:      opts.gate(cfg.Flag(), cfg.Enabled(), cfg.Host, cfg.Port),
		newClient: newS3Client,
	}
}

// newS3Client builds a path-style S3 client pointed at the MinIO endpoint.
func newS3Client(ctx context.Context, cfg config.MinIO) (objectAPI, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	endpoint := "http://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	}), nil
}

func (c *minioChecker) Service() string { return minioService }

func (c *minioChecker) Target() Target { return c.gate.target(minioService, minioClient) }

func (c *minioChecker) Check(ctx context.Context) Result {
	return gated(ctx, c.gate, minioService, minioClient, c.roundTrip)
}

func (c *minioChecker) roundTrip(ctx context.Context) (string, error) {
	client, err := c.newClient(ctx, c.cfg)
	if err != nil {
		return "", err
	}

	bucket := c.cfg.Bucket
	if err := ensureBucket(ctx, client, bucket); err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("health/%s.txt", uuid.NewString())
	payload := []byte("minio-health-" + uuid.NewString())

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(objectName),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
		ContentType:   aws.String("text/plain"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", objectName, err)
	}

	got, err := readObject(ctx, client, bucket, objectName)
	if err != nil {
		return "", err
	}
	if !bytes.Equal(got, payload) {
		return "", Failf(KindValueMismatch, "payload mismatch for %s: got %d bytes, want %d", objectName, len(got), len(payload))
	}

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return "", fmt.Errorf("deleting %s: %w", objectName, err)
	}
	return fmt.Sprintf("Uploaded and retrieved %s", objectName), nil
}

func readObject(ctx context.Context, client objectAPI, bucket, key string) ([]byte, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return body, nil
}

// ensureBucket creates bucket when HeadBucket reports it missing. A
// concurrent creation by someone else is not an error.
func ensureBucket(ctx context.Context, client objectAPI, bucket string) error {
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("checking bucket %s: %w", bucket, err)
	}

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	var owned *types.BucketAlreadyOwnedByYou
	var exists *types.BucketAlreadyExists
	if err != nil && !errors.As(err, &owned) && !errors.As(err, &exists) {
		return fmt.Errorf("creating bucket %s: %w", bucket, err)
	}
	return nil
}
