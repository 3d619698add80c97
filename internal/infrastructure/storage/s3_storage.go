package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/garyjia/training-reimbursement/internal/application/port"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// S3Config holds the connection settings of an S3-compatible object store
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	UseSSL          bool
}

// S3FileStorage keeps request materials as objects in one bucket
type S3FileStorage struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewS3FileStorage connects to the object store and creates the bucket when missing
func NewS3FileStorage(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3FileStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	s := &S3FileStorage{client: client, bucket: cfg.Bucket, logger: logger}
	if err := s.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *S3FileStorage) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}

	if region == "" {
		region = "us-east-1"
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("Created storage bucket", zap.String("bucket", s.bucket))
	return nil
}

// Save uploads content under key
func (s *S3FileStorage) Save(ctx context.Context, key string, content []byte) error {
	object, err := cleanKey(key)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, s.bucket, object, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType(object)})
	if err != nil {
		s.logger.Error("Failed to upload object", zap.String("key", object), zap.Error(err))
		return fmt.Errorf("failed to upload object: %w", err)
	}

	s.logger.Debug("Object uploaded", zap.String("key", object), zap.Int("size", len(content)))
	return nil
}

// Read downloads the object under key
func (s *S3FileStorage) Read(ctx context.Context, key string) ([]byte, error) {
	object, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, object)
		}
		s.logger.Error("Failed to download object", zap.String("key", object), zap.Error(err))
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	return content, nil
}

// Exists reports whether an object is stored under key
func (s *S3FileStorage) Exists(ctx context.Context, key string) bool {
	object, err := cleanKey(key)
	if err != nil {
		return false
	}
	_, err = s.client.StatObject(ctx, s.bucket, object, minio.StatObjectOptions{})
	return err == nil
}

// Delete removes the object under key. Missing objects are not an error.
func (s *S3FileStorage) Delete(ctx context.Context, key string) error {
	object, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, object, minio.RemoveObjectOptions{}); err != nil && !isNoSuchKey(err) {
		s.logger.Error("Failed to delete object", zap.String("key", object), zap.Error(err))
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// GetFullPath returns the s3:// URI of key
func (s *S3FileStorage) GetFullPath(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, strings.TrimPrefix(key, "/"))
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

func contentType(key string) string {
	switch strings.ToLower(key[strings.LastIndex(key, ".")+1:]) {
	case "pdf":
		return "application/pdf"
	case "png":
		return "image/png"
	case "jpg":
		return "image/jpeg"
	case "txt":
		return "text/plain"
	case "doc":
		return "application/msword"
	case "msg":
		return "application/vnd.ms-outlook"
	case "pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	default:
		return "application/octet-stream"
	}
}

var (
	_ port.FileStorage = (*LocalFileStorage)(nil)
	_ port.FileStorage = (*S3FileStorage)(nil)
)
