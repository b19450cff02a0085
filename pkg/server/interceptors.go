package server

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// =============================================================================
// 1. Logging Interceptor (结构化日志)
// =============================================================================

// UnaryLoggingInterceptor 负责拦截普通请求 (Commit / Stat / Delete ...)
func UnaryLoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()

	// 调用业务逻辑
	resp, err := handler(ctx, req)

	duration := time.Since(start)
	logRPC("Unary", info.FullMethod, duration, err)

	return resp, err
}

// StreamLoggingInterceptor 负责拦截流式请求 (Upload / Stage / Download)
func StreamLoggingInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()

	counted := &countingStream{ServerStream: ss}
	err := handler(srv, counted)

	duration := time.Since(start)
	logRPC("Stream", info.FullMethod, duration, err,
		slog.Int("recv_msgs", counted.recv),
		slog.Int("sent_msgs", counted.sent),
	)

	return err
}

// countingStream 统计流上收发的消息数
type countingStream struct {
	grpc.ServerStream
	recv, sent int
}

func (s *countingStream) RecvMsg(m any) error {
	err := s.ServerStream.RecvMsg(m)
	if err == nil {
		s.recv++
	}
	return err
}

func (s *countingStream) SendMsg(m any) error {
	err := s.ServerStream.SendMsg(m)
	if err == nil {
		s.sent++
	}
	return err
}

// logRPC 统一的日志打印逻辑
func logRPC(kind, method string, duration time.Duration, err error, extra ...slog.Attr) {
	// 提取 gRPC 状态码
	st, _ := status.FromError(err)
	code := st.Code()

	level := slog.LevelInfo
	if code != codes.OK {
		// NotFound / InvalidArgument 这种业务错误算 Warn
		// Internal (不变量被破坏) / DataLoss 算 Error
		switch code {
		case codes.Internal, codes.Unknown, codes.DataLoss:
			level = slog.LevelError
		default:
			level = slog.LevelWarn
		}
	}

	attrs := append([]slog.Attr{
		slog.String("kind", kind),
		slog.String("method", method),
		slog.String("code", code.String()),
		slog.Duration("dur", duration),
		slog.String("err", errToString(err)),
	}, extra...)
	slog.LogAttrs(context.Background(), level, "gRPC Request", attrs...)
}

func errToString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// =============================================================================
// 2. Recovery Interceptor (防弹衣)
// =============================================================================

// UnaryRecoveryInterceptor 捕获 Panic
func UnaryRecoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverFromPanic(r)
		}
	}()
	return handler(ctx, req)
}

// StreamRecoveryInterceptor 捕获 Panic
func StreamRecoveryInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverFromPanic(r)
		}
	}()
	return handler(srv, ss)
}

func recoverFromPanic(p any) error {
	// 打印堆栈信息，方便调试
	stack := string(debug.Stack())
	slog.Error("panic recovered",
		slog.Any("panic", p),
		slog.String("stack", stack),
	)
	// 返回 gRPC Internal 错误给客户端，而不是直接断开连接
	return status.Errorf(codes.Internal, "internal server error: panic recovered")
}

// =============================================================================
// 3. Server Options
// =============================================================================

// maxMsgSize 单个消息上限，大文件靠流式分帧
const maxMsgSize = 64 * 1024 * 1024

// ServerOptions 恢复在外层，保证 panic 也能被记录成一次失败的请求
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(UnaryLoggingInterceptor, UnaryRecoveryInterceptor),
		grpc.ChainStreamInterceptor(StreamLoggingInterceptor, StreamRecoveryInterceptor),
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
	}
}
