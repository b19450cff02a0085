package disk

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"artifactvault/pkg/storage"
)

// Adapter 实现了 storage.ObjectStore 接口
type Adapter struct {
	rootPath string // 比如: /var/lib/av/objects
}

// NewAdapter 创建一个新的磁盘存储适配器
func NewAdapter(root string) (*Adapter, error) {
	// 确保根目录存在
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage dir: %w", err)
	}
	return &Adapter{rootPath: root}, nil
}

// layout 返回对象 ID 对应的物理路径
// 策略：使用前 2 个字符作为子目录 (Sharding)
// Example: id "aabbcc..." -> root/aa/bbcc...
func (s *Adapter) layout(id string) (string, error) {
	// 对象 ID 由 layered 后端生成，禁止路径穿越
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("invalid object id %q", id)
	}
	if len(id) < 3 {
		return filepath.Join(s.rootPath, id), nil
	}
	return filepath.Join(s.rootPath, id[:2], id[2:]), nil
}

func (s *Adapter) Put(ctx context.Context, id string, r io.Reader, size int64) error {
	targetPath, err := s.layout(id)
	if err != nil {
		return err
	}

	// 1. 准备目录
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// 2. 原子写入 (Atomic Write)
	// 技巧：先写到一个临时文件，然后 Rename。
	// 这样保证要么文件不存在，要么文件是完整的。
	tempFile, err := os.CreateTemp(dir, "temp-*")
	if err != nil {
		return err
	}
	// 成功 Rename 之后这个删除是无害的
	defer os.Remove(tempFile.Name())

	if _, err := io.Copy(tempFile, r); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Close(); err != nil { // 必须先关闭才能 Rename
		return err
	}

	// 3. 移动到最终位置
	return os.Rename(tempFile.Name(), targetPath)
}

func (s *Adapter) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	targetPath, err := s.layout(id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(targetPath)
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Delete 删除对象，不存在视为成功
func (s *Adapter) Delete(ctx context.Context, id string) error {
	targetPath, err := s.layout(id)
	if err != nil {
		return err
	}
	if err := os.Remove(targetPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
