package meta

import (
	"time"

	"gorm.io/datatypes"
)

// BlobFile 是 blob 后端的“文件文档”
// 字节本身存放在 ObjectStore 中，以 ID 为对象键
type BlobFile struct {
	// ID 后端内部标识 (UUID)，同时也是 ObjectStore 中的对象 ID
	ID string `gorm:"primaryKey;type:varchar(36)"`

	// Filename 临时区为 TMP_<uuid>，提交后为内容 Hash
	Filename string `gorm:"type:varchar(255);not null;uniqueIndex:idx_blob_address,priority:1"`

	// Tenant 为 NULL 表示没有 tenant 字段 (多租户之前写入的 legacy 数据)
	// 与 Filename 组成唯一索引：同一个 (hash, tenant) 只能有一条记录
	// 注意：SQL 中 NULL 互不相等，所以临时区 / legacy 记录不受该约束
	Tenant *string `gorm:"type:varchar(255);uniqueIndex:idx_blob_address,priority:2;index:idx_blob_tenant"`

	ContentType string `gorm:"type:varchar(255)"`

	// 写入时由后端计算
	Size int64
	MD5  string `gorm:"type:char(32)"`
	SHA1 string `gorm:"type:char(40)"`

	// Metadata 除 tenant 以外的全部元数据 (sha1、md5 以及调用方自定义字段)
	Metadata datatypes.JSON

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName 强制指定表名
func (BlobFile) TableName() string {
	return "blob_files"
}
