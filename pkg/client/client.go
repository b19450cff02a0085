package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	avrpc "artifactvault/pkg/api/avrpc/v1"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// uploadChunkSize 每个上传帧的大小
const uploadChunkSize = 256 * 1024

// AVClient 封装了与 ArtifactVault 服务端的连接
type AVClient struct {
	conn *grpc.ClientConn

	// 公开具体的 Service Client
	Artifacts avrpc.ArtifactServiceClient
}

// NewAVClient 创建并初始化客户端
// 它会立即返回，连接在后台进行；extra 用于测试注入 bufconn dialer 等
func NewAVClient(addr string, extra ...grpc.DialOption) (*AVClient, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(64*1024*1024),
			grpc.MaxCallSendMsgSize(64*1024*1024),
		),
		// 保持连接活跃
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		// 这里的 err 通常只是配置错误（如地址格式不对），网络不通不会在这里报错
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", addr, err)
	}

	return &AVClient{
		conn:      conn,
		Artifacts: avrpc.NewArtifactServiceClient(conn),
	}, nil
}

// Close 关闭底层连接
func (c *AVClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Upload 发送 Meta 帧后按块发送内容，返回服务端的提交结果
func (c *AVClient) Upload(ctx context.Context, meta *avrpc.UploadMeta, r io.Reader) (*avrpc.UploadResponse, error) {
	stream, err := c.Artifacts.Upload(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open upload stream: %w", err)
	}
	if err := stream.Send(&avrpc.UploadRequest{Meta: meta}); err != nil {
		return nil, closeWithError(stream, err)
	}

	for {
		// 每帧独立分配，SendMsg 之后消息可能仍被 stats handler 引用
		buf := make([]byte, uploadChunkSize)
		n, readErr := r.Read(buf)
		if n > 0 {
			if err := stream.Send(&avrpc.UploadRequest{Chunk: buf[:n]}); err != nil {
				return nil, closeWithError(stream, err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("failed to read upload content: %w", readErr)
		}
	}

	return stream.CloseAndRecv()
}

// Stage 只上传字节，返回临时 key
func (c *AVClient) Stage(ctx context.Context, r io.Reader) (*avrpc.StageResponse, error) {
	stream, err := c.Artifacts.Stage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open stage stream: %w", err)
	}

	for {
		buf := make([]byte, uploadChunkSize)
		n, readErr := r.Read(buf)
		if n > 0 {
			if err := stream.Send(&avrpc.StageRequest{Chunk: buf[:n]}); err != nil {
				return nil, closeWithError(stream, err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("failed to read stage content: %w", readErr)
		}
	}

	return stream.CloseAndRecv()
}

// Download 把制品内容写入 w，返回写入的字节数
func (c *AVClient) Download(ctx context.Context, tenant, hash string, w io.Writer) (int64, error) {
	stream, err := c.Artifacts.Download(ctx, &avrpc.DownloadRequest{Tenant: tenant, Hash: hash})
	if err != nil {
		return 0, err
	}

	var total int64
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		n, err := w.Write(resp.Chunk)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("failed to write download: %w", err)
		}
	}
}

// closeWithError Send 失败时 (io.EOF) 真正的原因要从 CloseAndRecv 拿
func closeWithError[Req any, Resp any](stream grpc.ClientStreamingClient[Req, Resp], sendErr error) error {
	if !errors.Is(sendErr, io.EOF) {
		return sendErr
	}
	_, err := stream.CloseAndRecv()
	if err == nil {
		return sendErr
	}
	return err
}
