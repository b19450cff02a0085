package avrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "avrpc.v1.ArtifactService"

const (
	ArtifactService_Upload_FullMethodName      = "/avrpc.v1.ArtifactService/Upload"
	ArtifactService_Stage_FullMethodName       = "/avrpc.v1.ArtifactService/Stage"
	ArtifactService_Commit_FullMethodName      = "/avrpc.v1.ArtifactService/Commit"
	ArtifactService_Abandon_FullMethodName     = "/avrpc.v1.ArtifactService/Abandon"
	ArtifactService_Stat_FullMethodName        = "/avrpc.v1.ArtifactService/Stat"
	ArtifactService_Download_FullMethodName    = "/avrpc.v1.ArtifactService/Download"
	ArtifactService_Delete_FullMethodName      = "/avrpc.v1.ArtifactService/Delete"
	ArtifactService_PurgeTenant_FullMethodName = "/avrpc.v1.ArtifactService/PurgeTenant"
)

// =============================================================================
// Client
// =============================================================================

type ArtifactServiceClient interface {
	Upload(ctx context.Context, opts ...grpc.CallOption) (grpc.ClientStreamingClient[UploadRequest, UploadResponse], error)
	Stage(ctx context.Context, opts ...grpc.CallOption) (grpc.ClientStreamingClient[StageRequest, StageResponse], error)
	Commit(ctx context.Context, in *CommitRequest, opts ...grpc.CallOption) (*CommitResponse, error)
	Abandon(ctx context.Context, in *AbandonRequest, opts ...grpc.CallOption) (*AbandonResponse, error)
	Stat(ctx context.Context, in *StatRequest, opts ...grpc.CallOption) (*StatResponse, error)
	Download(ctx context.Context, in *DownloadRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[DownloadResponse], error)
	Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error)
	PurgeTenant(ctx context.Context, in *PurgeTenantRequest, opts ...grpc.CallOption) (*PurgeTenantResponse, error)
}

type artifactServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewArtifactServiceClient 所有调用默认带上 CBOR content-subtype
func NewArtifactServiceClient(cc grpc.ClientConnInterface) ArtifactServiceClient {
	return &artifactServiceClient{cc: cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.StaticMethod(), grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *artifactServiceClient) Upload(ctx context.Context, opts ...grpc.CallOption) (grpc.ClientStreamingClient[UploadRequest, UploadResponse], error) {
	stream, err := c.cc.NewStream(ctx, &ArtifactService_ServiceDesc.Streams[0], ArtifactService_Upload_FullMethodName, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[UploadRequest, UploadResponse]{ClientStream: stream}, nil
}

func (c *artifactServiceClient) Stage(ctx context.Context, opts ...grpc.CallOption) (grpc.ClientStreamingClient[StageRequest, StageResponse], error) {
	stream, err := c.cc.NewStream(ctx, &ArtifactService_ServiceDesc.Streams[1], ArtifactService_Stage_FullMethodName, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[StageRequest, StageResponse]{ClientStream: stream}, nil
}

func (c *artifactServiceClient) Commit(ctx context.Context, in *CommitRequest, opts ...grpc.CallOption) (*CommitResponse, error) {
	out := new(CommitResponse)
	if err := c.cc.Invoke(ctx, ArtifactService_Commit_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *artifactServiceClient) Abandon(ctx context.Context, in *AbandonRequest, opts ...grpc.CallOption) (*AbandonResponse, error) {
	out := new(AbandonResponse)
	if err := c.cc.Invoke(ctx, ArtifactService_Abandon_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *artifactServiceClient) Stat(ctx context.Context, in *StatRequest, opts ...grpc.CallOption) (*StatResponse, error) {
	out := new(StatResponse)
	if err := c.cc.Invoke(ctx, ArtifactService_Stat_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *artifactServiceClient) Download(ctx context.Context, in *DownloadRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[DownloadResponse], error) {
	stream, err := c.cc.NewStream(ctx, &ArtifactService_ServiceDesc.Streams[2], ArtifactService_Download_FullMethodName, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[DownloadRequest, DownloadResponse]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *artifactServiceClient) Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	out := new(DeleteResponse)
	if err := c.cc.Invoke(ctx, ArtifactService_Delete_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *artifactServiceClient) PurgeTenant(ctx context.Context, in *PurgeTenantRequest, opts ...grpc.CallOption) (*PurgeTenantResponse, error) {
	out := new(PurgeTenantResponse)
	if err := c.cc.Invoke(ctx, ArtifactService_PurgeTenant_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// Server
// =============================================================================

type ArtifactServiceServer interface {
	Upload(grpc.ClientStreamingServer[UploadRequest, UploadResponse]) error
	Stage(grpc.ClientStreamingServer[StageRequest, StageResponse]) error
	Commit(context.Context, *CommitRequest) (*CommitResponse, error)
	Abandon(context.Context, *AbandonRequest) (*AbandonResponse, error)
	Stat(context.Context, *StatRequest) (*StatResponse, error)
	Download(*DownloadRequest, grpc.ServerStreamingServer[DownloadResponse]) error
	Delete(context.Context, *DeleteRequest) (*DeleteResponse, error)
	PurgeTenant(context.Context, *PurgeTenantRequest) (*PurgeTenantResponse, error)
	mustEmbedUnimplementedArtifactServiceServer()
}

// UnimplementedArtifactServiceServer 必须被嵌入，新增方法时旧实现仍能编译
type UnimplementedArtifactServiceServer struct{}

func (UnimplementedArtifactServiceServer) Upload(grpc.ClientStreamingServer[UploadRequest, UploadResponse]) error {
	return status.Error(codes.Unimplemented, "method Upload not implemented")
}
func (UnimplementedArtifactServiceServer) Stage(grpc.ClientStreamingServer[StageRequest, StageResponse]) error {
	return status.Error(codes.Unimplemented, "method Stage not implemented")
}
func (UnimplementedArtifactServiceServer) Commit(context.Context, *CommitRequest) (*CommitResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Commit not implemented")
}
func (UnimplementedArtifactServiceServer) Abandon(context.Context, *AbandonRequest) (*AbandonResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Abandon not implemented")
}
func (UnimplementedArtifactServiceServer) Stat(context.Context, *StatRequest) (*StatResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Stat not implemented")
}
func (UnimplementedArtifactServiceServer) Download(*DownloadRequest, grpc.ServerStreamingServer[DownloadResponse]) error {
	return status.Error(codes.Unimplemented, "method Download not implemented")
}
func (UnimplementedArtifactServiceServer) Delete(context.Context, *DeleteRequest) (*DeleteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Delete not implemented")
}
func (UnimplementedArtifactServiceServer) PurgeTenant(context.Context, *PurgeTenantRequest) (*PurgeTenantResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method PurgeTenant not implemented")
}
func (UnimplementedArtifactServiceServer) mustEmbedUnimplementedArtifactServiceServer() {}

func RegisterArtifactServiceServer(s grpc.ServiceRegistrar, srv ArtifactServiceServer) {
	s.RegisterService(&ArtifactService_ServiceDesc, srv)
}

func _ArtifactService_Upload_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(ArtifactServiceServer).Upload(&grpc.GenericServerStream[UploadRequest, UploadResponse]{ServerStream: stream})
}

func _ArtifactService_Stage_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(ArtifactServiceServer).Stage(&grpc.GenericServerStream[StageRequest, StageResponse]{ServerStream: stream})
}

func _ArtifactService_Download_Handler(srv any, stream grpc.ServerStream) error {
	m := new(DownloadRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ArtifactServiceServer).Download(m, &grpc.GenericServerStream[DownloadRequest, DownloadResponse]{ServerStream: stream})
}

// unaryHandler 把 (ctx, *Req) -> (*Resp, error) 包装成 grpc.MethodHandler
func unaryHandler[Req any, Resp any](fullMethod string, call func(ArtifactServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ArtifactServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ArtifactServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ArtifactService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ArtifactServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Commit",
			Handler:    unaryHandler(ArtifactService_Commit_FullMethodName, ArtifactServiceServer.Commit),
		},
		{
			MethodName: "Abandon",
			Handler:    unaryHandler(ArtifactService_Abandon_FullMethodName, ArtifactServiceServer.Abandon),
		},
		{
			MethodName: "Stat",
			Handler:    unaryHandler(ArtifactService_Stat_FullMethodName, ArtifactServiceServer.Stat),
		},
		{
			MethodName: "Delete",
			Handler:    unaryHandler(ArtifactService_Delete_FullMethodName, ArtifactServiceServer.Delete),
		},
		{
			MethodName: "PurgeTenant",
			Handler:    unaryHandler(ArtifactService_PurgeTenant_FullMethodName, ArtifactServiceServer.PurgeTenant),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Upload",
			Handler:       _ArtifactService_Upload_Handler,
			ClientStreams: true,
		},
		{
			StreamName:    "Stage",
			Handler:       _ArtifactService_Stage_Handler,
			ClientStreams: true,
		},
		{
			StreamName:    "Download",
			Handler:       _ArtifactService_Download_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "avrpc/v1/artifact",
}
