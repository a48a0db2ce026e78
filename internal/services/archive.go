package services

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultArchiveBucket = "yakima-events-raw-content"

// ContentArchive stores the raw payload fetched for each run in S3 so a
// failed extraction can be replayed against the exact bytes the run saw.
type ContentArchive struct {
	client     *s3.Client
	bucketName string
}

// NewContentArchive creates an archive backed by the default AWS config.
// The bucket comes from S3_BUCKET_NAME when set.
func NewContentArchive(ctx context.Context) (*ContentArchive, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	bucketName := os.Getenv("S3_BUCKET_NAME")
	if bucketName == "" {
		bucketName = defaultArchiveBucket
	}

	return &ContentArchive{
		client:     s3.NewFromConfig(cfg),
		bucketName: bucketName,
	}, nil
}

// NewContentArchiveWithClient wires an archive over an existing client.
func NewContentArchiveWithClient(client *s3.Client, bucketName string) *ContentArchive {
	return &ContentArchive{client: client, bucketName: bucketName}
}

// Store writes one run's raw content and returns the object key.
func (a *ContentArchive) Store(ctx context.Context, sourceID, runID string, content []byte) (string, error) {
	key := fmt.Sprintf("raw/%s/%s.dat", sourceID, runID)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive content for source %s: %w", sourceID, err)
	}

	return key, nil
}

// Fetch retrieves a previously archived payload by key.
func (a *ContentArchive) Fetch(ctx context.Context, key string) ([]byte, error) {
	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch archived content %s: %w", key, err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return nil, fmt.Errorf("failed to read archived content %s: %w", key, err)
	}

	return buf.Bytes(), nil
}
