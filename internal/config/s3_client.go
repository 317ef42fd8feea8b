package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

// NewS3Client creates an S3 client for the bundle mirror.
// Authentication priority: static credentials > AWS profile > default credential chain.
func NewS3Client(ctx context.Context, m types.MirrorConfig) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	opts = append(opts,
		config.WithRegion(m.Region),
		config.WithRetryMaxAttempts(3),
		config.WithRetryMode(aws.RetryModeStandard),
	)

	if m.Auth.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				m.Auth.AccessKeyID,
				m.Auth.SecretAccessKey,
				m.Auth.SessionToken,
			),
		))
	} else if m.Auth.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(m.Auth.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if m.Endpoint != "" {
			o.BaseEndpoint = aws.String(m.Endpoint)
		}
		if m.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	return client, nil
}
