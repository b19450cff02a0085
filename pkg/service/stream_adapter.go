package service

import (
	"fmt"

	avrpc "artifactvault/pkg/api/avrpc/v1"
)

// =============================================================================
// 1. Upload Adapter: gRPC Stream -> io.Reader
// =============================================================================

// ChunkFrame 携带二进制数据的帧 (UploadRequest / StageRequest)
type ChunkFrame interface {
	GetChunk() []byte
}

// RecvStream 定义了读取客户端流所需的最小集合，方便测试 Mock
type RecvStream[T ChunkFrame] interface {
	Recv() (T, error)
}

// GrpcStreamReader 将客户端流包装为 io.Reader
type GrpcStreamReader[T ChunkFrame] struct {
	stream      RecvStream[T]
	internalBuf []byte // 内部缓冲：存储从 Recv 拿到的、还没被 Read 读走的数据
	err         error  // 存储流的状态错误 (如 EOF)
	n           int64
}

func NewGrpcStreamReader[T ChunkFrame](stream RecvStream[T]) *GrpcStreamReader[T] {
	return &GrpcStreamReader[T]{stream: stream}
}

// Read 实现了 io.Reader 接口
// 这是一个典型的“缓冲-消费”状态机
func (r *GrpcStreamReader[T]) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	// 内部缓冲为空时去 gRPC 拉取新数据，空帧 (比如流中间的 Meta) 直接跳过
	for len(r.internalBuf) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		req, err := r.stream.Recv()
		if err != nil {
			r.err = err // 记住错误 (可能是 io.EOF)
			return 0, err
		}
		r.internalBuf = req.GetChunk()
	}

	copied := copy(p, r.internalBuf)
	r.internalBuf = r.internalBuf[copied:]
	r.n += int64(copied)
	return copied, nil
}

// Size 已经交给调用方的字节数
func (r *GrpcStreamReader[T]) Size() int64 { return r.n }

// =============================================================================
// 2. Download Adapter: io.Writer -> gRPC Stream
// =============================================================================

// DownloadStream 定义了 Download 接口所需的最小集合
type DownloadStream interface {
	Send(*avrpc.DownloadResponse) error
}

// GrpcStreamWriter 将 gRPC Download 流包装为 io.Writer
type GrpcStreamWriter struct {
	stream DownloadStream
}

func NewGrpcStreamWriter(stream DownloadStream) *GrpcStreamWriter {
	return &GrpcStreamWriter{stream: stream}
}

// Write 每次写入发一个 gRPC 包
// io.Copy 会复用 p，SendMsg 之后消息不能再被修改，所以先拷贝
func (w *GrpcStreamWriter) Write(p []byte) (int, error) {
	chunk := make([]byte, len(p))
	copy(chunk, p)
	if err := w.stream.Send(&avrpc.DownloadResponse{Chunk: chunk}); err != nil {
		return 0, fmt.Errorf("grpc send failed: %w", err)
	}
	return len(p), nil
}
