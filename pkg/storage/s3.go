package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrAccessDenied 桶存在但无权访问
var ErrAccessDenied = errors.New("private bucket: access denied")

// ObjectStore 图片等二进制对象的存储
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
	Reset(ctx context.Context) error
}

type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type S3Client struct {
	client *minio.Client
	bucket string
}

// NewS3Client 连接对象存储并确保桶存在
func NewS3Client(ctx context.Context, opts S3Options) (*S3Client, error) {
	minioOpts := &minio.Options{
		Secure: opts.UseSSL,
		Region: opts.Region,
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		minioOpts.Creds = credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, "")
	} else {
		minioOpts.Creds = credentials.NewEnvAWS()
	}

	client, err := minio.New(opts.Endpoint, minioOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	s := &S3Client{client: client, bucket: opts.Bucket}
	if err := s.ensureBucket(ctx, opts.Region); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *S3Client) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		if minio.ToErrorResponse(err).StatusCode == http.StatusForbidden {
			return ErrAccessDenied
		}
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	// 新建的桶默认私有
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func (s *S3Client) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

func (s *S3Client) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (s *S3Client) PresignedURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiresIn, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", key, err)
	}
	return u.String(), nil
}

// Reset 删除桶内全部对象，仅用于测试和重置；
// 结果通道需读到关闭为止，否则 ListObjects/RemoveObjects 的goroutine会阻塞
func (s *S3Client) Reset(ctx context.Context) error {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true})

	var errs []error
	for rErr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		if rErr.Err != nil {
			errs = append(errs, fmt.Errorf("failed to remove object %s: %w", rErr.ObjectName, rErr.Err))
		}
	}
	return errors.Join(errs...)
}
