package artifact

import (
	"errors"
	"fmt"
)

// 错误分类。“找不到” 不是错误，统一用 (零值, false, nil) 表示
var (
	// ErrStoreUnavailable 后端连接失败、超时、锁服务不可用。不在内部重试
	ErrStoreUnavailable = errors.New("artifact store unavailable")

	// ErrInvariantViolation 同一个 (tenant, hash) 地址匹配到了多条记录
	ErrInvariantViolation = errors.New("artifact invariant violated")

	ErrStagingNotFound = errors.New("staged upload not found")
	ErrDigestMismatch  = errors.New("digest mismatch")
	ErrInvalidHash     = errors.New("invalid content hash")
	ErrInvalidTempKey  = errors.New("invalid temp key")
)

// unavailable 在边界处把后端错误翻译成 ErrStoreUnavailable，保留原始错误链
func unavailable(op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
