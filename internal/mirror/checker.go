package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// headObjectAPI is the client surface ShouldUpload needs.
type headObjectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// ShouldUpload reports whether the object at key is missing or differs in
// size from localSize.
func ShouldUpload(ctx context.Context, client headObjectAPI, bucket, key string, localSize int64) (bool, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nf *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) {
			return true, nil
		}
		return false, fmt.Errorf("head object %s: %w", key, err)
	}

	if head.ContentLength == nil {
		return true, nil
	}
	return *head.ContentLength != localSize, nil
}
