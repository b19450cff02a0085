package artifact

import (
	"strings"
	"time"

	"artifactvault/pkg/storage"
	"artifactvault/pkg/types"
)

// Artifact 是一个已提交的内容对象
// Size / CreatedAt 来自读取时的后端句柄，不单独持久化
type Artifact struct {
	// ID 后端内部标识，删除时按它删，而不是按 filename
	ID string

	// StorageKey 后端查找键，只由内容 Hash 决定，不含租户
	StorageKey  types.Hash
	ContentHash types.Hash

	// Tenant 已经 sanitize 过。Legacy 为 true 时表示记录没有 tenant 字段
	Tenant string
	Legacy bool

	ContentType string
	AuxHash     string
	Size        int64
	CreatedAt   time.Time
}

func fromHandle(h storage.Handle) Artifact {
	a := Artifact{
		ID:          h.ID,
		StorageKey:  types.Hash(h.Key),
		ContentHash: types.Hash(h.Key),
		ContentType: h.ContentType,
		Size:        h.Size,
		CreatedAt:   h.CreatedAt,
	}
	if sha1, ok := h.Metadata.Get(storage.MetaSHA1); ok && sha1 != "" {
		a.ContentHash = types.Hash(sha1)
	}
	if md5, ok := h.Metadata.Get(storage.MetaMD5); ok {
		a.AuxHash = md5
	}
	if tenant, ok := h.Tenant(); ok {
		a.Tenant = tenant
	} else {
		a.Legacy = true
	}
	return a
}

// Sanitizer 规范化租户标识。写入和读取必须使用同一个 Sanitizer
type Sanitizer func(types.Tenant) string

// SanitizeUpper 去掉首尾空白并转大写
func SanitizeUpper(t types.Tenant) string {
	return strings.ToUpper(strings.TrimSpace(string(t)))
}

// SanitizeLower 去掉首尾空白并转小写
func SanitizeLower(t types.Tenant) string {
	return strings.ToLower(strings.TrimSpace(string(t)))
}

// SanitizePreserve 只去掉首尾空白
func SanitizePreserve(t types.Tenant) string {
	return strings.TrimSpace(string(t))
}

// SanitizerFor 根据配置名返回 Sanitizer，未知名字返回 false
func SanitizerFor(name string) (Sanitizer, bool) {
	switch strings.ToLower(name) {
	case "", "upper":
		return SanitizeUpper, true
	case "lower":
		return SanitizeLower, true
	case "preserve":
		return SanitizePreserve, true
	default:
		return nil, false
	}
}
