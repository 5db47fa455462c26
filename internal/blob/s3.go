package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	LinkTTL   time.Duration
}

// S3Store wraps MinIO/S3 interactions for raw video payloads.
type S3Store struct {
	client  *minio.Client
	bucket  string
	region  string
	linkTTL time.Duration
}

// NewS3Store creates a MinIO client from the config.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	ttl := cfg.LinkTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3Store{client: client, bucket: cfg.Bucket, region: cfg.Region, linkTTL: ttl}, nil
}

// EnsureBucket makes sure the bucket exists before use.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", mapS3Error(err))
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", mapS3Error(err))
	}
	return buf, nil
}

func (s *S3Store) Stat(ctx context.Context, key string) (int64, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("stat object: %w", mapS3Error(err))
	}
	return info.Size, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// Link returns a presigned GET URL valid for the configured TTL.
func (s *S3Store) Link(ctx context.Context, key string) (Reference, error) {
	if _, err := s.Stat(ctx, key); err != nil {
		return Reference{}, err
	}
	expires := time.Now().Add(s.linkTTL)
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.linkTTL, url.Values{})
	if err != nil {
		return Reference{}, fmt.Errorf("presign object: %w", err)
	}
	return Reference{URL: u.String(), ExpiresAt: expires}, nil
}

func mapS3Error(err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && (resp.Code == "NoSuchKey" || resp.StatusCode == 404) {
		return ErrNotFound
	}
	return err
}
