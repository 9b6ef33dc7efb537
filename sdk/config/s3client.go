// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client reads source files stored on S3 (or compatible) by byte range.
type S3Client struct {
	s3         *s3.Client
	downloader *manager.Downloader
}

func NewS3Client(ctx context.Context, cfgCreds S3Config) (*S3Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfgCreds.Region),
	}
	if cfgCreds.AccessKey != "" {
		creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfgCreds.AccessKey,
			cfgCreds.SecretKey,
			cfgCreds.AccessToken,
		))
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if cfgCreds.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfgCreds.EndpointURL)
			// most S3-compatible stores need path style
			o.UsePathStyle = true
		}
	})

	return &S3Client{
		s3: client,
		downloader: manager.NewDownloader(client, func(d *manager.Downloader) {
			d.Concurrency = 1
		}),
	}, nil
}

// Size returns the object length.
func (c *S3Client) Size(ctx context.Context, bucket, key string) (int64, error) {
	out, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to stat s3://%s/%s: %w", bucket, key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// ReadRange returns length bytes starting at offset.
func (c *S3Client) ReadRange(ctx context.Context, bucket, key string, offset, length int64) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}
	buf := manager.NewWriteAtBuffer(make([]byte, 0, length))
	n, err := c.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s [%d,+%d): %w", bucket, key, offset, length, err)
	}
	if n != length {
		return nil, fmt.Errorf("short read from s3://%s/%s: got %d of %d bytes", bucket, key, n, length)
	}
	return buf.Bytes(), nil
}
