package meta

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"artifactvault/pkg/storage"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrBlobNotFound = errors.New("blob file not found in catalog")
	ErrDuplicateKey = errors.New("blob address already taken")
)

// Filter 是 blob_files 上的查询条件
type Filter struct {
	// Filename 为空表示不过滤
	Filename string
	Tenant   storage.TenantMatch
}

// Rename 描述一次“重命名 + 替换元数据”
type Rename struct {
	Filename    string
	Tenant      *string
	ContentType string
	Metadata    datatypes.JSON
}

// Repository 封装所有对 blob_files 表的操作
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// scope 把 Filter 翻译成 WHERE 子句
func (f Filter) scope(tx *gorm.DB) *gorm.DB {
	if f.Filename != "" {
		tx = tx.Where("filename = ?", f.Filename)
	}
	switch {
	case f.Tenant.IsAbsent():
		tx = tx.Where("tenant IS NULL")
	case !f.Tenant.IsAny():
		v, _ := f.Tenant.Value()
		tx = tx.Where("tenant = ?", v)
	}
	return tx
}

// isDuplicate 兼容性：处理不同数据库 (PG 与 SQLite) 的唯一约束错误
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// Create 插入新记录。如果 (filename, tenant) 已存在返回 ErrDuplicateKey
func (r *Repository) Create(ctx context.Context, f *BlobFile) error {
	if err := r.db.GetConn().WithContext(ctx).Create(f).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create blob file: %w", err)
	}
	return nil
}

// FindOne 按自然顺序 (created_at, id) 返回第一条匹配
func (r *Repository) FindOne(ctx context.Context, f Filter) (*BlobFile, error) {
	var file BlobFile
	err := f.scope(r.db.GetConn().WithContext(ctx)).
		Order("created_at ASC").
		Order("id ASC").
		First(&file).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// Find 返回最多 limit 条匹配 (limit <= 0 不限)
func (r *Repository) Find(ctx context.Context, f Filter, limit int) ([]BlobFile, error) {
	var files []BlobFile
	tx := f.scope(r.db.GetConn().WithContext(ctx)).
		Order("created_at ASC").
		Order("id ASC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// Delete 按 ID 删除，返回是否真的删掉了一行
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.GetConn().WithContext(ctx).
		Where("id = ?", id).
		Delete(&BlobFile{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteMany 在一个事务里删除全部匹配的记录，返回被删除的行 (调用方据此清理字节)
func (r *Repository) DeleteMany(ctx context.Context, f Filter) ([]BlobFile, error) {
	var deleted []BlobFile
	err := r.db.GetConn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := f.scope(tx).Find(&deleted).Error; err != nil {
			return err
		}
		if len(deleted) == 0 {
			return nil
		}
		ids := make([]string, 0, len(deleted))
		for _, file := range deleted {
			ids = append(ids, file.ID)
		}
		return tx.Where("id IN ?", ids).Delete(&BlobFile{}).Error
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// Rename 修改 filename / tenant / 元数据
// 唯一索引保证：两个并发提交同一个 (hash, tenant)，只有一个能成功
func (r *Repository) Rename(ctx context.Context, id string, rn Rename) error {
	result := r.db.GetConn().WithContext(ctx).
		Model(&BlobFile{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"filename":     rn.Filename,
			"tenant":       rn.Tenant,
			"content_type": rn.ContentType,
			"metadata":     rn.Metadata,
			"updated_at":   time.Now(),
		})

	if result.Error != nil {
		if isDuplicate(result.Error) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to rename blob file: %w", result.Error)
	}

	// 影响行数为 0，说明记录已经不在了
	if result.RowsAffected == 0 {
		return ErrBlobNotFound
	}
	return nil
}
