package artifact

import (
	"context"
	"fmt"
	"log/slog"

	"artifactvault/pkg/storage"
	"artifactvault/pkg/types"
)

// Addressing 计算 (tenant, hash) 的规范地址，并实现带 legacy 回退的查找
type Addressing struct {
	backend  storage.Backend
	sanitize Sanitizer
	logger   *slog.Logger
}

func NewAddressing(backend storage.Backend, sanitize Sanitizer, logger *slog.Logger) *Addressing {
	if sanitize == nil {
		sanitize = SanitizeUpper
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Addressing{backend: backend, sanitize: sanitize, logger: logger}
}

// Sanitize 规范化租户标识
func (a *Addressing) Sanitize(tenant types.Tenant) string {
	return a.sanitize(tenant)
}

// StorageKey 后端键只由内容 Hash 决定，两个租户上传相同字节得到相同的 key
// 十六进制统一小写，和服务端计算出的摘要一致
func (a *Addressing) StorageKey(_ types.Tenant, hash types.Hash) string {
	return hash.Normalize().String()
}

// FindCommitted 先按租户精确查找，找不到再回退到没有 tenant 字段的 legacy 记录
// 只用于读路径 (retrieve 和提交前的去重检查)
func (a *Addressing) FindCommitted(ctx context.Context, tenant types.Tenant, hash types.Hash) (Artifact, bool, error) {
	art, found, err := a.FindExact(ctx, tenant, hash)
	if err != nil || found {
		return art, found, err
	}

	// fallback: 多租户之前写入的记录
	return a.findUnique(ctx, storage.Query{
		Key:    a.StorageKey(tenant, hash),
		Tenant: storage.TenantAbsent(),
	})
}

// FindExact 只做租户精确匹配，删除路径必须用它，避免误删其他租户的数据
func (a *Addressing) FindExact(ctx context.Context, tenant types.Tenant, hash types.Hash) (Artifact, bool, error) {
	return a.findUnique(ctx, storage.Query{
		Key:    a.StorageKey(tenant, hash),
		Tenant: storage.TenantIs(a.sanitize(tenant)),
	})
}

// findUnique 多于一条匹配说明地址唯一性被破坏，报错而不是随便挑一条
func (a *Addressing) findUnique(ctx context.Context, q storage.Query) (Artifact, bool, error) {
	handles, err := a.backend.Find(ctx, q, 2)
	if err != nil {
		return Artifact{}, false, unavailable("find artifact", err)
	}

	switch len(handles) {
	case 0:
		return Artifact{}, false, nil
	case 1:
		return fromHandle(handles[0]), true, nil
	default:
		tenant, _ := q.Tenant.Value()
		a.logger.Error("multiple committed entries share one address",
			slog.String("key", q.Key),
			slog.String("tenant", tenant),
			slog.Bool("legacy", q.Tenant.IsAbsent()),
			slog.String("first_id", handles[0].ID),
			slog.String("second_id", handles[1].ID),
		)
		return Artifact{}, false, fmt.Errorf("%w: key %s has more than one entry", ErrInvariantViolation, q.Key)
	}
}
