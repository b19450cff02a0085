package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	avrpc "artifactvault/pkg/api/avrpc/v1"
	"artifactvault/pkg/app"
	"artifactvault/pkg/artifact"
	"artifactvault/pkg/meta"
	"artifactvault/pkg/storage/disk"
	"artifactvault/pkg/storage/layered"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestApp 是所有 Service 测试共享的基础设施初始化逻辑
func setupTestApp(t *testing.T) *app.App {
	t.Helper()

	// 1. Store
	objects, err := disk.NewAdapter(t.TempDir())
	require.NoError(t, err)

	// 2. DB & Catalog
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
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
	return &app.App{
		Repository: artifact.NewRepository(backend),
		Backend:    backend,
	}
}

func setupTestService(t *testing.T) (*ArtifactService, *app.App) {
	application := setupTestApp(t)
	return NewArtifactService(application), application
}

// =============================================================================
// Mocks (模拟 gRPC 流的行为)
// =============================================================================

// mockClientStream 模拟客户端流式发送，Upload / Stage 共用
type mockClientStream[Req any, Resp any] struct {
	grpc.ServerStream // 嵌入以满足接口，只覆盖用到的方法
	Ctx               context.Context
	Requests          []*Req // 预设的输入队列
	cursor            int
	Response          *Resp // 捕获最终响应
}

func (m *mockClientStream[Req, Resp]) Context() context.Context {
	if m.Ctx == nil {
		return context.Background()
	}
	return m.Ctx
}

func (m *mockClientStream[Req, Resp]) Recv() (*Req, error) {
	if m.cursor >= len(m.Requests) {
		return nil, io.EOF
	}
	req := m.Requests[m.cursor]
	m.cursor++
	return req, nil
}

func (m *mockClientStream[Req, Resp]) SendAndClose(resp *Resp) error {
	m.Response = resp
	return nil
}

type mockUploadStream = mockClientStream[avrpc.UploadRequest, avrpc.UploadResponse]
type mockStageStream = mockClientStream[avrpc.StageRequest, avrpc.StageResponse]

// mockDownloadStream 模拟服务端流式响应
type mockDownloadStream struct {
	grpc.ServerStream
	Ctx    context.Context
	Chunks [][]byte
}

func (m *mockDownloadStream) Context() context.Context {
	if m.Ctx == nil {
		return context.Background()
	}
	return m.Ctx
}

// Send 真实的 gRPC 流会立刻序列化，这里拷贝一份模拟同样的语义
func (m *mockDownloadStream) Send(resp *avrpc.DownloadResponse) error {
	m.Chunks = append(m.Chunks, append([]byte(nil), resp.Chunk...))
	return nil
}

func (m *mockDownloadStream) Bytes() []byte {
	var out []byte
	for _, c := range m.Chunks {
		out = append(out, c...)
	}
	return out
}

// uploadFrames 生成 Meta + 若干 Chunk 帧
func uploadFrames(meta *avrpc.UploadMeta, chunks ...string) []*avrpc.UploadRequest {
	frames := []*avrpc.UploadRequest{{Meta: meta}}
	for _, c := range chunks {
		frames = append(frames, &avrpc.UploadRequest{Chunk: []byte(c)})
	}
	return frames
}

func stageFrames(chunks ...string) []*avrpc.StageRequest {
	frames := make([]*avrpc.StageRequest, 0, len(chunks))
	for _, c := range chunks {
		frames = append(frames, &avrpc.StageRequest{Chunk: []byte(c)})
	}
	return frames
}
