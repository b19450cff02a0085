package commands

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	avrpc "artifactvault/pkg/api/avrpc/v1"
	"artifactvault/pkg/app"
	"artifactvault/pkg/artifact"
	"artifactvault/pkg/meta"
	"artifactvault/pkg/server"
	"artifactvault/pkg/service"
	"artifactvault/pkg/storage/disk"
	"artifactvault/pkg/storage/layered"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupIntegrationEnv 搭建一个使用 真实文件系统 + 内存数据库 + 内存 gRPC 的集成环境
func setupIntegrationEnv(t *testing.T) *app.App {
	t.Helper()

	objects, err := disk.NewAdapter(filepath.Join(t.TempDir(), "objects"))
	require.NoError(t, err)

	// 关键：使用内存 SQLite 代替 Postgres，保证测试极速运行且无外部依赖
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	metaDB := meta.NewWithConn(db)
	require.NoError(t, metaDB.AutoMigrate(&meta.BlobFile{}))

	backend := layered.New(meta.NewRepository(metaDB), objects)
	application := &app.App{
		Repository: artifact.NewRepository(backend),
		Backend:    backend,
	}

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer(server.ServerOptions()...)
	avrpc.RegisterArtifactServiceServer(srv, service.NewArtifactService(application))
	go func() { _ = srv.Serve(lis) }()

	remoteDialOptions = []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	}
	t.Cleanup(func() {
		srv.Stop()
		remoteDialOptions = nil
	})
	return application
}

// run 执行一条 av 命令并返回 stdout
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--remote", "passthrough:///bufnet"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sha1Hex(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

func TestCLI_PushStatGetRm(t *testing.T) {
	setupIntegrationEnv(t)

	// 1. 准备一个目录，其中一部分被 .avignore 排除
	dir := t.TempDir()
	files := map[string]string{
		"app.tar.gz":     "binary release",
		"docs/notes.txt": "release notes",
		"build.log":      "should be ignored",
	}
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".avignore"), []byte("*.log\n"), 0644))

	// 2. push
	out, err := run(t, "--tenant", "acme", "push", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "2 uploaded, 0 deduplicated, 0 failed")
	assert.NotContains(t, out, "build.log")

	// 再 push 一次全部去重
	out, err = run(t, "--tenant", "acme", "push", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 uploaded, 2 deduplicated, 0 failed")

	hash := sha1Hex([]byte("binary release"))

	// 3. stat
	out, err = run(t, "--tenant", "acme", "stat", hash)
	require.NoError(t, err)
	assert.Contains(t, out, "tenant:       ACME")
	assert.Contains(t, out, "size:         14")

	// 4. get -> 文件
	target := filepath.Join(t.TempDir(), "out.bin")
	_, err = run(t, "--tenant", "acme", "get", hash, "-o", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "binary release", string(data))

	// 5. 其他租户看不到
	out, err = run(t, "--tenant", "other", "stat", hash)
	require.NoError(t, err)
	assert.Contains(t, out, "No artifact")

	// 6. rm
	_, err = run(t, "--tenant", "acme", "rm", hash)
	require.NoError(t, err)
	out, err = run(t, "--tenant", "acme", "stat", hash)
	require.NoError(t, err)
	assert.Contains(t, out, "No artifact")
}

func TestCLI_StageCommitAbandon(t *testing.T) {
	application := setupIntegrationEnv(t)

	src := filepath.Join(t.TempDir(), "payload")
	require.NoError(t, os.WriteFile(src, []byte("b1"), 0644))

	out, err := run(t, "stage", src)
	require.NoError(t, err)
	key := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(key, "TMP_"))

	out, err = run(t, "--tenant", "tenantA", "commit", key, "aaaa")
	require.NoError(t, err)
	assert.Contains(t, out, "Committed aaaa")

	out, err = run(t, "stage", src)
	require.NoError(t, err)
	key2 := strings.TrimSpace(out)

	out, err = run(t, "--tenant", "tenantA", "commit", key2, "aaaa")
	require.NoError(t, err)
	assert.Contains(t, out, "Already stored")

	_, err = run(t, "abandon", key2)
	require.NoError(t, err)

	_, found, err := application.Repository.Retrieve(context.Background(), "tenantA", "aaaa")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCLI_Purge(t *testing.T) {
	setupIntegrationEnv(t)

	src := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("purge me"), 0644))

	_, err := run(t, "--tenant", "gone", "push", src)
	require.NoError(t, err)

	// 没有 --yes 拒绝执行
	_, err = run(t, "--tenant", "gone", "purge")
	require.Error(t, err)

	out, err := run(t, "--tenant", "gone", "purge", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Purged 1 artifacts")
}

func TestCollectFiles_ExplicitFileIsNeverIgnored(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))

	files, err := collectFiles([]string{p}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{p}, files)

	files, err = collectFiles([]string{dir}, nil)
	require.NoError(t, err)
	assert.Empty(t, files, "config.yaml inside a directory is skipped by default")
}
