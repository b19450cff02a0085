package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	avrpc "artifactvault/pkg/api/avrpc/v1"
	"artifactvault/pkg/app"
	"artifactvault/pkg/artifact"
	"artifactvault/pkg/digest"
	"artifactvault/pkg/types"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// downloadChunkSize 每个下载帧的大小
const downloadChunkSize = 64 * 1024

type ArtifactService struct {
	avrpc.UnimplementedArtifactServiceServer
	app    *app.App
	logger *slog.Logger
}

func NewArtifactService(application *app.App) *ArtifactService {
	return &ArtifactService{
		app:    application,
		logger: slog.Default().With(slog.String("component", "artifact-service")),
	}
}

// =============================================================================
// 1. Upload (Client-Side Streaming)
// =============================================================================

// Upload 一次性完成暂存、摘要校验和提交
// 协议约定：第一帧必须是 Meta，后续帧是 Chunk
func (s *ArtifactService) Upload(stream grpc.ClientStreamingServer[avrpc.UploadRequest, avrpc.UploadResponse]) error {
	ctx := stream.Context()

	// --- Step 1: 握手阶段 (Handshake) ---
	first, err := stream.Recv()
	if err == io.EOF {
		return status.Error(codes.InvalidArgument, "empty stream: expected metadata frame")
	}
	if err != nil {
		return toStatus(ctx, "receive metadata", err)
	}
	meta := first.GetMeta()
	if meta == nil {
		return status.Error(codes.InvalidArgument, "protocol violation: first frame must be UploadMeta")
	}

	// --- Step 2: 执行阶段 ---
	res, err := s.app.Repository.Upload(ctx, artifact.UploadRequest{
		Tenant:      types.Tenant(meta.Tenant),
		ContentType: meta.ContentType,
		Content:     NewGrpcStreamReader[*avrpc.UploadRequest](stream),
		Expected: digest.Set{
			SHA1:   meta.Sha1,
			MD5:    meta.Md5,
			SHA256: meta.Sha256,
		},
	})
	if err != nil {
		return toStatus(ctx, "upload", err)
	}

	s.logger.Info("upload finished",
		slog.String("tenant", res.Artifact.Tenant),
		slog.String("hash", res.Artifact.ContentHash.Short()),
		slog.String("state", res.State.String()),
	)

	// --- Step 3: 响应阶段 ---
	return stream.SendAndClose(&avrpc.UploadResponse{
		Artifact:     toInfo(res.Artifact),
		Deduplicated: res.State == artifact.StateDeduplicated,
		Sha1:         res.Digests.SHA1,
		Md5:          res.Digests.MD5,
		Sha256:       res.Digests.SHA256,
	})
}

// =============================================================================
// 2. Stage / Commit / Abandon (两阶段上传)
// =============================================================================

// Stage 只收字节，返回临时 key，Hash 由调用方之后在 Commit 中给出
func (s *ArtifactService) Stage(stream grpc.ClientStreamingServer[avrpc.StageRequest, avrpc.StageResponse]) error {
	ctx := stream.Context()
	reader := NewGrpcStreamReader[*avrpc.StageRequest](stream)

	key, err := s.app.Repository.Stage(ctx, reader)
	if err != nil {
		return toStatus(ctx, "stage", err)
	}
	return stream.SendAndClose(&avrpc.StageResponse{
		TempKey: key.String(),
		Size:    reader.Size(),
	})
}

func (s *ArtifactService) Commit(ctx context.Context, req *avrpc.CommitRequest) (*avrpc.CommitResponse, error) {
	art, state, err := s.app.Repository.CommitWithState(ctx, artifact.CommitRequest{
		Tenant:      types.Tenant(req.Tenant),
		ContentHash: types.Hash(req.ContentHash),
		AuxHash:     req.AuxHash,
		ContentType: req.ContentType,
		TempKey:     types.TempKey(req.TempKey),
	})
	if err != nil {
		return nil, toStatus(ctx, "commit", err)
	}
	return &avrpc.CommitResponse{
		Artifact:     toInfo(art),
		Deduplicated: state == artifact.StateDeduplicated,
	}, nil
}

func (s *ArtifactService) Abandon(ctx context.Context, req *avrpc.AbandonRequest) (*avrpc.AbandonResponse, error) {
	if err := s.app.Repository.AbandonStaging(ctx, types.TempKey(req.TempKey)); err != nil {
		return nil, toStatus(ctx, "abandon", err)
	}
	return &avrpc.AbandonResponse{}, nil
}

// =============================================================================
// 3. Stat / Download
// =============================================================================

func (s *ArtifactService) Stat(ctx context.Context, req *avrpc.StatRequest) (*avrpc.StatResponse, error) {
	art, found, err := s.app.Repository.Retrieve(ctx, types.Tenant(req.Tenant), types.Hash(req.Hash))
	if err != nil {
		return nil, toStatus(ctx, "stat", err)
	}
	if !found {
		return &avrpc.StatResponse{Exists: false}, nil
	}
	return &avrpc.StatResponse{Exists: true, Artifact: toInfo(art)}, nil
}

// Download 处理下载请求 (Server-Side Streaming)
func (s *ArtifactService) Download(req *avrpc.DownloadRequest, stream grpc.ServerStreamingServer[avrpc.DownloadResponse]) error {
	ctx := stream.Context()

	art, found, err := s.app.Repository.Retrieve(ctx, types.Tenant(req.Tenant), types.Hash(req.Hash))
	if err != nil {
		return toStatus(ctx, "download", err)
	}
	if !found {
		return status.Errorf(codes.NotFound, "artifact %s not found", req.Hash)
	}

	rc, err := s.app.Repository.Open(ctx, art)
	if err != nil {
		return toStatus(ctx, "download", err)
	}
	defer rc.Close()

	// 把 gRPC stream 伪装成 io.Writer
	buf := make([]byte, downloadChunkSize)
	if _, err := io.CopyBuffer(NewGrpcStreamWriter(stream), rc, buf); err != nil {
		return toStatus(ctx, "download", err)
	}
	return nil
}

// =============================================================================
// 4. Delete / PurgeTenant
// =============================================================================

// Delete 只删除租户精确匹配的制品，不存在时同样返回成功
func (s *ArtifactService) Delete(ctx context.Context, req *avrpc.DeleteRequest) (*avrpc.DeleteResponse, error) {
	if err := s.app.Repository.DeleteByHash(ctx, types.Tenant(req.Tenant), types.Hash(req.Hash)); err != nil {
		return nil, toStatus(ctx, "delete", err)
	}
	return &avrpc.DeleteResponse{}, nil
}

func (s *ArtifactService) PurgeTenant(ctx context.Context, req *avrpc.PurgeTenantRequest) (*avrpc.PurgeTenantResponse, error) {
	n, err := s.app.Repository.DeleteByTenant(ctx, types.Tenant(req.Tenant))
	if err != nil {
		return nil, toStatus(ctx, "purge tenant", err)
	}
	return &avrpc.PurgeTenantResponse{Deleted: n}, nil
}

// =============================================================================
// Helpers
// =============================================================================

func toInfo(a artifact.Artifact) *avrpc.ArtifactInfo {
	return &avrpc.ArtifactInfo{
		Id:          a.ID,
		StorageKey:  a.StorageKey.String(),
		ContentHash: a.ContentHash.String(),
		Tenant:      a.Tenant,
		Legacy:      a.Legacy,
		ContentType: a.ContentType,
		Md5:         a.AuxHash,
		Size:        a.Size,
		CreatedAt:   a.CreatedAt.UnixMilli(),
	}
}

// toStatus 映射核心层错误到 gRPC 状态码
func toStatus(ctx context.Context, op string, err error) error {
	// 客户端取消或超时优先，底层错误只是它的后果
	if ctxErr := ctx.Err(); ctxErr != nil {
		return status.FromContextError(ctxErr).Err()
	}

	switch {
	case errors.Is(err, artifact.ErrInvalidHash), errors.Is(err, artifact.ErrInvalidTempKey):
		return status.Errorf(codes.InvalidArgument, "%s: %v", op, err)
	case errors.Is(err, artifact.ErrStagingNotFound):
		return status.Errorf(codes.NotFound, "%s: %v", op, err)
	case errors.Is(err, artifact.ErrDigestMismatch):
		return status.Errorf(codes.DataLoss, "%s: %v", op, err)
	case errors.Is(err, artifact.ErrStoreUnavailable):
		return status.Errorf(codes.Unavailable, "%s: %v", op, err)
	case errors.Is(err, artifact.ErrInvariantViolation):
		return status.Errorf(codes.Internal, "%s: %v", op, err)
	}

	// 已经是 gRPC 状态 (比如流读取失败)，原样返回
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Errorf(codes.Internal, "%s: %v", op, err)
}
