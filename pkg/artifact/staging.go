package artifact

import (
	"context"
	"fmt"
	"io"

	"artifactvault/pkg/storage"
	"artifactvault/pkg/types"

	"github.com/google/uuid"
)

// maxKeyAttempts UUIDv4 有 122 位熵，正常情况下第一次就能拿到
const maxKeyAttempts = 8

// Staging 负责“先收字节、后知道 Hash”的暂存区
// 除了后端本身，它不持有任何共享的可变状态
type Staging struct {
	backend storage.Backend
	newKey  func() types.TempKey
}

func NewStaging(backend storage.Backend) *Staging {
	return &Staging{
		backend: backend,
		newKey: func() types.TempKey {
			return types.TempKey(types.TempKeyPrefix + uuid.NewString())
		},
	}
}

// Store 把字节流写入临时命名空间，返回临时 key
func (s *Staging) Store(ctx context.Context, r io.Reader) (types.TempKey, error) {
	key, err := s.unusedKey(ctx)
	if err != nil {
		return "", err
	}

	// 临时记录没有 tenant 元数据
	if _, err := s.backend.Put(ctx, key.String(), r, nil); err != nil {
		return "", unavailable("stage upload", err)
	}
	return key, nil
}

// unusedKey 生成候选 key，后端里已存在就重新生成
func (s *Staging) unusedKey(ctx context.Context) (types.TempKey, error) {
	for i := 0; i < maxKeyAttempts; i++ {
		key := s.newKey()
		if !key.IsValid() {
			continue
		}
		_, found, err := s.Resolve(ctx, key)
		if err != nil {
			return "", err
		}
		if !found {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: no unused temp key after %d attempts", ErrInvariantViolation, maxKeyAttempts)
}

// Resolve 查找临时 key 对应的后端记录。纯读
func (s *Staging) Resolve(ctx context.Context, key types.TempKey) (storage.Handle, bool, error) {
	// 没有 TMP_ 前缀的 key 不可能指向临时记录
	if !key.IsValid() {
		return storage.Handle{}, false, nil
	}

	h, found, err := s.backend.FindOne(ctx, storage.Query{Key: key.String(), Tenant: storage.AnyTenant()})
	if err != nil {
		return storage.Handle{}, false, unavailable("resolve temp key", err)
	}
	return h, found, nil
}

// Discard 删除临时记录。key 不存在 (或已经被提交) 时静默返回
func (s *Staging) Discard(ctx context.Context, key types.TempKey) error {
	h, found, err := s.Resolve(ctx, key)
	if err != nil || !found {
		return err
	}
	if err := s.backend.Delete(ctx, h.ID); err != nil {
		return unavailable("discard temp key", err)
	}
	return nil
}
