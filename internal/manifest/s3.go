package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client is the subset of *s3.Client used to read and write the manifest.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Load reads the manifest at bucket/key. A missing object yields an empty
// manifest; every other failure is an error.
func Load(ctx context.Context, client S3Client, bucket, key string) (*Manifest, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nf *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) {
			return New(), nil
		}
		return nil, fmt.Errorf("downloading manifest: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	var m Manifest
	if err := json.NewDecoder(out.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing manifest JSON: %w", err)
	}
	if m.Version != Version {
		return nil, fmt.Errorf("unsupported manifest version: %d", m.Version)
	}
	if m.Projects == nil {
		m.Projects = make(map[string]Entry)
	}
	return &m, nil
}

// Save writes m to bucket/key.
func Save(ctx context.Context, client S3Client, bucket, key string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("uploading manifest: %w", err)
	}
	return nil
}
