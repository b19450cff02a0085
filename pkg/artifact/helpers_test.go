package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"artifactvault/pkg/meta"
	"artifactvault/pkg/storage"
	"artifactvault/pkg/storage/disk"
	"artifactvault/pkg/storage/layered"
	"artifactvault/pkg/types"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestBackend 真实文件系统 + 内存 SQLite
func setupTestBackend(t *testing.T) storage.Backend {
	t.Helper()
	objects, err := disk.NewAdapter(t.TempDir())
	require.NoError(t, err)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// 共享缓存模式下并发写会报 table locked，单连接串行化即可
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	metaDB := meta.NewWithConn(db)
	require.NoError(t, metaDB.AutoMigrate(&meta.BlobFile{}))

	return layered.New(meta.NewRepository(metaDB), objects)
}

func setupTestRepo(t *testing.T, opts ...Option) (*Repository, storage.Backend) {
	t.Helper()
	backend := setupTestBackend(t)
	return NewRepository(backend, opts...), backend
}

// mustStage 暂存字节，失败则终止
func mustStage(t *testing.T, repo *Repository, content string) types.TempKey {
	t.Helper()
	key, err := repo.Stage(context.Background(), strings.NewReader(content))
	require.NoError(t, err)
	return key
}

// mustCommit 强制提交，失败则终止
func mustCommit(t *testing.T, repo *Repository, tenant types.Tenant, hash types.Hash, key types.TempKey, msgAndArgs ...any) Artifact {
	t.Helper()
	art, err := repo.Commit(context.Background(), CommitRequest{
		Tenant:      tenant,
		ContentHash: hash,
		ContentType: "application/bin",
		TempKey:     key,
	})
	require.NoError(t, err, msgAndArgs...)
	return art
}

func mustRead(t *testing.T, repo *Repository, art Artifact) string {
	t.Helper()
	rc, err := repo.Open(context.Background(), art)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

// putLegacy 模拟多租户之前写入的记录：没有 tenant 字段
func putLegacy(t *testing.T, backend storage.Backend, hash types.Hash, content string) storage.Handle {
	t.Helper()
	h, err := backend.Put(context.Background(), hash.String(), strings.NewReader(content),
		storage.Metadata{storage.MetaSHA1: hash.String()})
	require.NoError(t, err)
	return h
}

// -----------------------------------------------------------------------------
// 故障注入
// -----------------------------------------------------------------------------

var errConnRefused = errors.New("dial tcp 127.0.0.1:5432: connection refused")

// downBackend 模拟后端整体不可用
type downBackend struct{}

func (downBackend) Put(context.Context, string, io.Reader, storage.Metadata) (storage.Handle, error) {
	return storage.Handle{}, errConnRefused
}
func (downBackend) FindOne(context.Context, storage.Query) (storage.Handle, bool, error) {
	return storage.Handle{}, false, errConnRefused
}
func (downBackend) Find(context.Context, storage.Query, int) ([]storage.Handle, error) {
	return nil, errConnRefused
}
func (downBackend) Open(context.Context, string) (io.ReadCloser, error) { return nil, errConnRefused }
func (downBackend) Delete(context.Context, string) error               { return errConnRefused }
func (downBackend) DeleteMany(context.Context, storage.Query) (int64, error) {
	return 0, errConnRefused
}
func (downBackend) Rename(context.Context, string, string, storage.Metadata, string) error {
	return errConnRefused
}

// blindBackend 让前 blind 次 Find 返回空，用来确定性地复现“检查后写入”的竞态
type blindBackend struct {
	storage.Backend
	blind int32
}

func (b *blindBackend) Find(ctx context.Context, q storage.Query, limit int) ([]storage.Handle, error) {
	if atomic.AddInt32(&b.blind, -1) >= 0 {
		return nil, nil
	}
	return b.Backend.Find(ctx, q, limit)
}
