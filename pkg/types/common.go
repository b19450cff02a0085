// pkg/types/common.go
package types

import (
	"encoding/hex"
	"strings"
)

// Hash 代表制品的内容地址 (十六进制摘要，默认 SHA-1)
// 这是一个“值对象”，应当是不可变的。
type Hash string

func (h Hash) String() string { return string(h) }

func (h Hash) IsZero() bool { return h == "" }

// IsValid 只做格式检查：非空、偶数长度的十六进制串
// 不强制长度，SHA-1 / SHA-256 都可以作为地址
func (h Hash) IsValid() bool {
	if len(h) == 0 || len(h)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(string(h))
	return err == nil
}

// Short 返回前 8 位，用于日志
func (h Hash) Short() string {
	if len(h) <= 8 {
		return string(h)
	}
	return string(h[:8])
}

// Normalize 统一转成小写
func (h Hash) Normalize() Hash { return Hash(strings.ToLower(string(h))) }

// Tenant 是逻辑租户标识 (未经 sanitize 的原始输入)
type Tenant string

func (t Tenant) String() string { return string(t) }

// TempKeyPrefix 临时对象的命名空间标记
// 十六进制摘要里不会出现下划线，所以 TMP_ 前缀永远不会和真实 Hash 撞车
const TempKeyPrefix = "TMP_"

// TempKey 是暂存区里一个未提交上传的句柄
type TempKey string

func (k TempKey) String() string { return string(k) }

// IsValid 检查是否带有临时命名空间前缀
func (k TempKey) IsValid() bool {
	return strings.HasPrefix(string(k), TempKeyPrefix) && len(k) > len(TempKeyPrefix)
}
