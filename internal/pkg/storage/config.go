package storage

import (
	"errors"
	"fmt"

	"github.com/elvish-ishaan/dotformer/internal/pkg/env"
)

// Config holds object storage configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string // source uploads
	TargetBucket    string // transformed artifacts; defaults to BucketName
	EndpointURL     string // Optional for S3-compatible services
	CDNDomain       string // Optional CloudFront/CDN domain fronting the target bucket
}

// LoadConfig loads object storage configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("AWS_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("AWS_REGION", "us-east-1"),
		BucketName:      env.GetEnv("AWS_BUCKET_NAME", ""),
		TargetBucket:    env.GetEnv("AWS_TARGET_BUCKET", ""),
		EndpointURL:     env.GetEnv("AWS_ENDPOINT_URL", ""),
		CDNDomain:       env.GetEnv("CLOUDFRONT_DOMAIN", ""),
	}

	if config.AccessKeyID == "" {
		return nil, errors.New("AWS_ACCESS_KEY_ID is required")
	}
	if config.SecretAccessKey == "" {
		return nil, errors.New("AWS_SECRET_ACCESS_KEY is required")
	}
	if config.BucketName == "" {
		return nil, errors.New("AWS_BUCKET_NAME is required")
	}
	if config.TargetBucket == "" {
		config.TargetBucket = config.BucketName
	}

	return config, nil
}

// PublicURL builds the permanent public URL for an object key in the given
// bucket. A configured CDN domain wins over the direct bucket URL.
func (c *Config) PublicURL(bucket, key string) string {
	if c.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", c.CDNDomain, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, c.Region, key)
}
