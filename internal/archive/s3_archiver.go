package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
)

// S3Archiver writes each eviction batch as a JSON-lines object under
// <prefix>/<orderID>/<timestamp>.jsonl.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Archiver(ctx context.Context, region, bucket, prefix string) (*S3Archiver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &S3Archiver{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (a *S3Archiver) Archive(ctx context.Context, orderID string, updates []domain.LocationUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, update := range updates {
		if err := enc.Encode(update); err != nil {
			return fmt.Errorf("failed to encode location update: %w", err)
		}
	}

	key := fmt.Sprintf("%s/%s/%d.jsonl", a.prefix, orderID, time.Now().UnixNano())
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("unable to upload location archive to S3: %w", err)
	}
	return nil
}
