// Package minio 通过 minio-go 原生客户端把制品字节存进 MinIO (或任意 S3 兼容) 的 Bucket
package minio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"artifactvault/pkg/storage"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config MinIO 连接配置
type Config struct {
	Endpoint  string // host:port，不带 scheme
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// Adapter 实现了 storage.ObjectStore 接口
type Adapter struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewAdapter 创建客户端，Bucket 不存在时自动创建
func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
		slog.Info("storage: created bucket", slog.String("bucket", cfg.Bucket))
	}

	return &Adapter{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (s *Adapter) objectKey(id string) string {
	key := id
	if len(id) > 2 {
		key = id[:2] + "/" + id[2:]
	}
	if s.prefix != "" {
		return s.prefix + "/" + key
	}
	return key
}

// Put 流式上传。size 为 -1 时 minio-go 自动分片
func (s *Adapter) Put(ctx context.Context, id string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.objectKey(id), r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", id, err)
	}
	return nil
}

// Get 打开对象。minio.Object 是惰性的，先 Stat 一次把 NoSuchKey 提前暴露出来
func (s *Adapter) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectKey(id), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", id, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("stat object %q: %w", id, err)
	}
	return obj, nil
}

// Delete RemoveObject 对不存在的 key 不报错
func (s *Adapter) Delete(ctx context.Context, id string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, s.objectKey(id), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", id, err)
	}
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
