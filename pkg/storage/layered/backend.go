// Package layered 用关系型目录 (每个文件一行) + ObjectStore (字节) 组合出 storage.Backend
package layered

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"artifactvault/pkg/digest"
	"artifactvault/pkg/meta"
	"artifactvault/pkg/storage"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Backend 实现了 storage.Backend 接口
type Backend struct {
	catalog *meta.Repository
	objects storage.ObjectStore
	logger  *slog.Logger
}

func New(catalog *meta.Repository, objects storage.ObjectStore) *Backend {
	return &Backend{
		catalog: catalog,
		objects: objects,
		logger:  slog.Default().With(slog.String("component", "layered-backend")),
	}
}

// unavailable 把底层错误归类为 storage.ErrUnavailable，同时保留原始错误链
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err)
}

// Put 先写字节再写目录行。目录行写失败时回收已写的字节
func (b *Backend) Put(ctx context.Context, key string, r io.Reader, md storage.Metadata) (storage.Handle, error) {
	id := uuid.NewString()

	// 边写边算摘要，size / md5 由后端记录
	dr := digest.NewReader(r)
	if err := b.objects.Put(ctx, id, dr, -1); err != nil {
		return storage.Handle{}, unavailable("put object", err)
	}
	sum := dr.Sum()

	encoded, err := encodeMetadata(md)
	if err != nil {
		b.discardObject(ctx, id)
		return storage.Handle{}, err
	}

	row := &meta.BlobFile{
		ID:        id,
		Filename:  key,
		Tenant:    tenantColumn(md),
		Size:      dr.Size(),
		MD5:       sum.MD5,
		SHA1:      sum.SHA1,
		Metadata:  encoded,
		CreatedAt: time.Now().UTC(),
	}
	if err := b.catalog.Create(ctx, row); err != nil {
		b.discardObject(ctx, id)
		if errors.Is(err, meta.ErrDuplicateKey) {
			return storage.Handle{}, fmt.Errorf("put %q: %w", key, storage.ErrDuplicateKey)
		}
		return storage.Handle{}, unavailable("create catalog row", err)
	}

	return toHandle(*row)
}

func (b *Backend) FindOne(ctx context.Context, q storage.Query) (storage.Handle, bool, error) {
	row, err := b.catalog.FindOne(ctx, filter(q))
	if errors.Is(err, meta.ErrBlobNotFound) {
		return storage.Handle{}, false, nil
	}
	if err != nil {
		return storage.Handle{}, false, unavailable("find one", err)
	}
	h, err := toHandle(*row)
	if err != nil {
		return storage.Handle{}, false, err
	}
	return h, true, nil
}

func (b *Backend) Find(ctx context.Context, q storage.Query, limit int) ([]storage.Handle, error) {
	rows, err := b.catalog.Find(ctx, filter(q), limit)
	if err != nil {
		return nil, unavailable("find", err)
	}
	handles := make([]storage.Handle, 0, len(rows))
	for _, row := range rows {
		h, err := toHandle(row)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

func (b *Backend) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	rc, err := b.objects.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, unavailable("open object", err)
	}
	return rc, nil
}

// Delete 先删目录行 (立即对查询不可见)，再删字节
func (b *Backend) Delete(ctx context.Context, id string) error {
	removed, err := b.catalog.Delete(ctx, id)
	if err != nil {
		return unavailable("delete catalog row", err)
	}
	if removed {
		b.discardObject(ctx, id)
	}
	return nil
}

func (b *Backend) DeleteMany(ctx context.Context, q storage.Query) (int64, error) {
	rows, err := b.catalog.DeleteMany(ctx, filter(q))
	if err != nil {
		return 0, unavailable("delete many", err)
	}
	for _, row := range rows {
		b.discardObject(ctx, row.ID)
	}
	return int64(len(rows)), nil
}

// Rename 只改目录行，字节不需要搬动
func (b *Backend) Rename(ctx context.Context, id string, key string, md storage.Metadata, contentType string) error {
	encoded, err := encodeMetadata(md)
	if err != nil {
		return err
	}

	err = b.catalog.Rename(ctx, id, meta.Rename{
		Filename:    key,
		Tenant:      tenantColumn(md),
		ContentType: contentType,
		Metadata:    encoded,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, meta.ErrDuplicateKey):
		return fmt.Errorf("rename to %q: %w", key, storage.ErrDuplicateKey)
	case errors.Is(err, meta.ErrBlobNotFound):
		return fmt.Errorf("rename %s: %w", id, storage.ErrNotFound)
	default:
		return unavailable("rename", err)
	}
}

// discardObject 字节清理失败只会留下孤儿对象，不影响一致性，所以只打日志
func (b *Backend) discardObject(ctx context.Context, id string) {
	if err := b.objects.Delete(ctx, id); err != nil {
		b.logger.Warn("failed to delete object bytes, leaving orphan",
			slog.String("id", id),
			slog.Any("err", err),
		)
	}
}

func filter(q storage.Query) meta.Filter {
	return meta.Filter{Filename: q.Key, Tenant: q.Tenant}
}

// tenantColumn 把 “字段不存在” 映射为 NULL
func tenantColumn(md storage.Metadata) *string {
	v, ok := md.Get(storage.MetaTenant)
	if !ok {
		return nil
	}
	return &v
}

// encodeMetadata tenant 单独成列，其余字段进 JSON
func encodeMetadata(md storage.Metadata) (datatypes.JSON, error) {
	rest := md.Clone()
	delete(rest, storage.MetaTenant)
	if len(rest) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(rest)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return datatypes.JSON(data), nil
}

func toHandle(row meta.BlobFile) (storage.Handle, error) {
	md := storage.Metadata{}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &md); err != nil {
			return storage.Handle{}, fmt.Errorf("corrupt metadata on %s: %w", row.ID, err)
		}
	}
	if row.Tenant != nil {
		md[storage.MetaTenant] = *row.Tenant
	}

	return storage.Handle{
		ID:          row.ID,
		Key:         row.Filename,
		Metadata:    md,
		ContentType: row.ContentType,
		Size:        row.Size,
		MD5:         row.MD5,
		SHA1:        row.SHA1,
		CreatedAt:   row.CreatedAt,
	}, nil
}
