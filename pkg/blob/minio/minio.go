// Package minio implements blob.Gateway on an S3-compatible store.
package minio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/artem13815/cvflow/pkg/blob"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
	URLTTL    time.Duration
	// MaxBytes caps Fetch. A presigned PUT does not bind the body size.
	MaxBytes int64
}

type Gateway struct {
	client   *minio.Client
	bucket   string
	region   string
	ttl      time.Duration
	maxBytes int64
}

func New(cfg Config) (*Gateway, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio connection: %w", err)
	}
	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Gateway{client: client, bucket: cfg.Bucket, region: cfg.Region, ttl: ttl, maxBytes: cfg.MaxBytes}, nil
}

// EnsureBucket creates the bucket on first start.
func (g *Gateway) EnsureBucket(ctx context.Context) error {
	ok, err := g.client.BucketExists(ctx, g.bucket)
	if err != nil {
		return unavailable(err)
	}
	if ok {
		return nil
	}
	if err := g.client.MakeBucket(ctx, g.bucket, minio.MakeBucketOptions{Region: g.region}); err != nil {
		return unavailable(err)
	}
	return nil
}

func (g *Gateway) UploadSlot(ctx context.Context, key, contentType string) (blob.Slot, error) {
	if err := blob.ValidateKey(key); err != nil {
		return blob.Slot{}, err
	}
	u, err := g.client.PresignedPutObject(ctx, g.bucket, key, g.ttl)
	if err != nil {
		return blob.Slot{}, unavailable(err)
	}
	return blob.Slot{URL: u.String(), Method: http.MethodPut, ExpiresIn: int(g.ttl.Seconds())}, nil
}

func (g *Gateway) DownloadSlot(ctx context.Context, key string) (blob.Slot, error) {
	if err := blob.ValidateKey(key); err != nil {
		return blob.Slot{}, err
	}
	u, err := g.client.PresignedGetObject(ctx, g.bucket, key, g.ttl, url.Values{})
	if err != nil {
		return blob.Slot{}, unavailable(err)
	}
	return blob.Slot{URL: u.String(), Method: http.MethodGet, ExpiresIn: int(g.ttl.Seconds())}, nil
}

func (g *Gateway) Fetch(ctx context.Context, key string) ([]byte, error) {
	obj, err := g.client.GetObject(ctx, g.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(err)
	}
	defer obj.Close()
	if g.maxBytes > 0 {
		info, err := obj.Stat()
		if err != nil {
			return nil, classify(err)
		}
		if info.Size > g.maxBytes {
			return nil, fmt.Errorf("%w: %d bytes", blob.ErrTooLarge, info.Size)
		}
	}
	data, err := blob.ReadCapped(obj, g.maxBytes)
	if errors.Is(err, blob.ErrTooLarge) {
		return nil, err
	}
	if err != nil {
		return nil, classify(err)
	}
	return data, nil
}

func (g *Gateway) Remove(ctx context.Context, key string) error {
	if err := g.client.RemoveObject(ctx, g.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if errors.Is(classify(err), blob.ErrObjectNotFound) {
			return nil
		}
		return unavailable(err)
	}
	return nil
}

func (g *Gateway) Ping(ctx context.Context) error {
	if _, err := g.client.BucketExists(ctx, g.bucket); err != nil {
		return unavailable(err)
	}
	return nil
}

func classify(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %v", blob.ErrObjectNotFound, err)
	}
	return unavailable(err)
}

func unavailable(err error) error { return fmt.Errorf("%w: %v", blob.ErrUnavailable, err) }
