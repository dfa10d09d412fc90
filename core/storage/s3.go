package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/JonCoulter/whenly/core/config"
	"github.com/JonCoulter/whenly/core/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Storage uploads objects and hands out short-lived download links.
type Storage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type s3Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// InitStorage builds the S3 client from static credentials. Returns nil when
// no bucket is configured; callers treat a nil Storage as exports disabled.
func InitStorage(cfg config.S3Config) Storage {
	if cfg.Bucket == "" {
		logger.Info("S3 storage not configured, exports disabled")
		return nil
	}

	awsCfg := aws.Config{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 storage initialized", "bucket", cfg.Bucket, "region", cfg.Region)

	return &s3Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}
}

func (s *s3Storage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		logger.Error("Storage:Upload", "key", key, "error", err)
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (s *s3Storage) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		logger.Error("Storage:PresignDownload", "key", key, "error", err)
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
