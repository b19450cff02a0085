package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var unaryInfo = &grpc.UnaryServerInfo{FullMethod: "/avrpc.v1.ArtifactService/Stat"}

func TestUnaryRecoveryInterceptor(t *testing.T) {
	_, err := UnaryRecoveryInterceptor(context.Background(), nil, unaryInfo,
		func(context.Context, any) (any, error) { panic("boom") })

	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestUnaryLoggingInterceptor_PassThrough(t *testing.T) {
	want := status.Error(codes.NotFound, "missing")
	resp, err := UnaryLoggingInterceptor(context.Background(), "req", unaryInfo,
		func(_ context.Context, req any) (any, error) { return req, want })

	assert.Equal(t, "req", resp)
	assert.True(t, errors.Is(err, want))
}

// fakeStream 只实现 RecvMsg / SendMsg
type fakeStream struct {
	grpc.ServerStream
	frames int
}

func (f *fakeStream) Context() context.Context { return context.Background() }

func (f *fakeStream) RecvMsg(any) error {
	if f.frames == 0 {
		return errors.New("eof")
	}
	f.frames--
	return nil
}

func (f *fakeStream) SendMsg(any) error { return nil }

func TestStreamInterceptors(t *testing.T) {
	info := &grpc.StreamServerInfo{FullMethod: "/avrpc.v1.ArtifactService/Upload", IsClientStream: true}

	// 1. 正常透传，并统计消息数
	var seen *countingStream
	err := StreamLoggingInterceptor(nil, &fakeStream{frames: 3}, info, func(_ any, ss grpc.ServerStream) error {
		seen = ss.(*countingStream)
		for ss.RecvMsg(nil) == nil {
		}
		return ss.SendMsg(nil)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, seen.recv)
	assert.Equal(t, 1, seen.sent)

	// 2. panic 被恢复成 Internal
	err = StreamRecoveryInterceptor(nil, &fakeStream{}, info, func(any, grpc.ServerStream) error {
		panic("stream boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestServerOptions(t *testing.T) {
	srv := grpc.NewServer(ServerOptions()...)
	defer srv.Stop()
	assert.NotNil(t, srv)
}
