package meta

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// -----------------------------------------------------------------------------
// 通用辅助函数 (Helpers)
// -----------------------------------------------------------------------------

// setupTestRepo 构建隔离的测试环境
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	metaDB := NewWithConn(db)
	require.NoError(t, metaDB.AutoMigrate(&BlobFile{}))

	return NewRepository(metaDB)
}

func strPtr(s string) *string { return &s }

// mustCreate 强制插入一条记录，失败则终止
func mustCreate(t *testing.T, repo *Repository, filename string, tenant *string, msgAndArgs ...any) *BlobFile {
	t.Helper()
	f := &BlobFile{
		ID:        uuid.NewString(),
		Filename:  filename,
		Tenant:    tenant,
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), f), msgAndArgs...)
	return f
}
