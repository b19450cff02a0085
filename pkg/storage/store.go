package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound = errors.New("object not found")
	// ErrUnavailable 连接失败、超时等一切“后端不可用”的情况
	ErrUnavailable = errors.New("storage backend unavailable")
	// ErrDuplicateKey 后端的唯一约束拒绝了写入 (同一个 key + tenant 已存在)
	ErrDuplicateKey = errors.New("duplicate key")
)

// 约定的元数据字段
const (
	MetaTenant = "tenant"
	MetaSHA1   = "sha1"
	MetaMD5    = "md5"
)

// Metadata 附着在 blob 上的键值对
// 注意：键不存在 和 值为空字符串 是两种不同的状态 (legacy 数据没有 tenant 字段)
type Metadata map[string]string

// Get 返回值以及该键是否存在
func (m Metadata) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[key]
	return v, ok
}

// Clone 深拷贝，避免调用方修改共享 map
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Handle 是后端里一条记录的只读视图
type Handle struct {
	// ID 后端内部标识，删除/重命名都按 ID 操作
	ID string
	// Key 即 filename：临时区为 TMP_xxx，提交后为内容 Hash
	Key         string
	Metadata    Metadata
	ContentType string

	// 以下字段由后端在写入时计算
	Size      int64
	MD5       string
	SHA1      string
	CreatedAt time.Time
}

// Tenant 返回 tenant 元数据，第二个返回值表示字段是否存在
func (h Handle) Tenant() (string, bool) {
	return h.Metadata.Get(MetaTenant)
}

type tenantMode int

const (
	tenantAny tenantMode = iota
	tenantEquals
	tenantAbsent
)

// TenantMatch 描述查询中对 tenant 元数据的约束
type TenantMatch struct {
	mode  tenantMode
	value string
}

// AnyTenant 不限制 tenant
func AnyTenant() TenantMatch { return TenantMatch{mode: tenantAny} }

// TenantIs 要求 tenant 字段存在且等于 v
func TenantIs(v string) TenantMatch { return TenantMatch{mode: tenantEquals, value: v} }

// TenantAbsent 要求 tenant 字段完全不存在 (不是空字符串)
func TenantAbsent() TenantMatch { return TenantMatch{mode: tenantAbsent} }

func (t TenantMatch) IsAny() bool    { return t.mode == tenantAny }
func (t TenantMatch) IsAbsent() bool { return t.mode == tenantAbsent }

// Value 只有在 TenantIs 时才有意义
func (t TenantMatch) Value() (string, bool) {
	return t.value, t.mode == tenantEquals
}

// Query 是 findOne / find / deleteMany 使用的谓词
type Query struct {
	// Key 为空表示不按 filename 过滤
	Key    string
	Tenant TenantMatch
}

// Backend 是不透明的 blob 后端，不懂去重也不懂租户
// 实现必须保证 (Key, tenant) 的唯一性：重复写入返回 ErrDuplicateKey
type Backend interface {
	// Put 写入一条新记录并返回句柄
	Put(ctx context.Context, key string, r io.Reader, meta Metadata) (Handle, error)

	// FindOne 返回按后端自然顺序 (created_at, id) 的第一条匹配
	FindOne(ctx context.Context, q Query) (Handle, bool, error)

	// Find 返回最多 limit 条匹配，limit <= 0 表示不限
	Find(ctx context.Context, q Query, limit int) ([]Handle, error)

	// Open 读取内容。返回 io.ReadCloser 以支持大文件流式读取
	Open(ctx context.Context, id string) (io.ReadCloser, error)

	// Delete 按内部 ID 删除，不存在时不报错
	Delete(ctx context.Context, id string) error

	// DeleteMany 批量删除，返回删除条数
	DeleteMany(ctx context.Context, q Query) (int64, error)

	// Rename 修改 filename 并整体替换元数据和 Content-Type
	Rename(ctx context.Context, id string, key string, meta Metadata, contentType string) error
}

// ObjectStore 只负责字节，按不透明的对象 ID 存取
// 实现可以是本地磁盘、S3 或 MinIO
type ObjectStore interface {
	// Put size < 0 表示长度未知
	Put(ctx context.Context, id string, r io.Reader, size int64) error
	Get(ctx context.Context, id string) (io.ReadCloser, error)
	// Delete 对不存在的对象是 no-op
	Delete(ctx context.Context, id string) error
}
