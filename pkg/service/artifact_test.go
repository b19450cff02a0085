package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"

	avrpc "artifactvault/pkg/api/avrpc/v1"
	"artifactvault/pkg/artifact"
	"artifactvault/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func requireCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok, "expected a gRPC status, got %v", err)
	assert.Equal(t, want, st.Code(), st.Message())
}

func TestArtifactService_Upload_HappyPath(t *testing.T) {
	svc, _ := setupTestService(t)

	stream := &mockUploadStream{
		Requests: uploadFrames(&avrpc.UploadMeta{
			Tenant:      "acme",
			ContentType: "text/plain",
			Sha1:        sha1Hex("hello grpc world"),
		}, "hello ", "grpc ", "world"),
	}
	require.NoError(t, svc.Upload(stream))

	resp := stream.Response
	require.NotNil(t, resp)
	assert.False(t, resp.Deduplicated)
	assert.Equal(t, sha1Hex("hello grpc world"), resp.Sha1)
	require.NotNil(t, resp.Artifact)
	assert.Equal(t, resp.Sha1, resp.Artifact.StorageKey)
	assert.Equal(t, "ACME", resp.Artifact.Tenant)
	assert.Equal(t, int64(16), resp.Artifact.Size)
	assert.Equal(t, resp.Md5, resp.Artifact.Md5)

	// 第二次上传相同内容 -> 去重
	again := &mockUploadStream{
		Requests: uploadFrames(&avrpc.UploadMeta{Tenant: "ACME"}, "hello grpc world"),
	}
	require.NoError(t, svc.Upload(again))
	assert.True(t, again.Response.Deduplicated)
	assert.Equal(t, resp.Artifact.Id, again.Response.Artifact.Id)
}

func TestArtifactService_Upload_ProtocolErrors(t *testing.T) {
	svc, _ := setupTestService(t)

	// 空流
	err := svc.Upload(&mockUploadStream{})
	requireCode(t, err, codes.InvalidArgument)

	// 第一帧不是 Meta
	err = svc.Upload(&mockUploadStream{
		Requests: []*avrpc.UploadRequest{{Chunk: []byte("data")}},
	})
	requireCode(t, err, codes.InvalidArgument)
}

func TestArtifactService_Upload_DigestMismatch(t *testing.T) {
	svc, application := setupTestService(t)

	stream := &mockUploadStream{
		Requests: uploadFrames(&avrpc.UploadMeta{Tenant: "acme", Sha1: sha1Hex("something else")}, "payload"),
	}
	err := svc.Upload(stream)
	requireCode(t, err, codes.DataLoss)

	// 什么都不应该留下
	all, err := application.Backend.Find(context.Background(), storage.Query{Tenant: storage.AnyTenant()}, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestArtifactService_TwoPhase(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	// 1. Stage
	stage := &mockStageStream{Requests: stageFrames("b", "1")}
	require.NoError(t, svc.Stage(stage))
	require.NotNil(t, stage.Response)
	assert.True(t, strings.HasPrefix(stage.Response.TempKey, "TMP_"))
	assert.Equal(t, int64(2), stage.Response.Size)

	// 2. Commit
	commit, err := svc.Commit(ctx, &avrpc.CommitRequest{
		Tenant:      "tenantA",
		ContentHash: "aaaa",
		ContentType: "application/bin",
		TempKey:     stage.Response.TempKey,
	})
	require.NoError(t, err)
	assert.False(t, commit.Deduplicated)
	assert.Equal(t, "aaaa", commit.Artifact.StorageKey)

	// 3. 再次 Stage + Commit -> 去重，调用方负责 Abandon
	stage2 := &mockStageStream{Requests: stageFrames("b1")}
	require.NoError(t, svc.Stage(stage2))
	commit2, err := svc.Commit(ctx, &avrpc.CommitRequest{
		Tenant: "tenantA", ContentHash: "aaaa", TempKey: stage2.Response.TempKey,
	})
	require.NoError(t, err)
	assert.True(t, commit2.Deduplicated)
	assert.Equal(t, commit.Artifact.Id, commit2.Artifact.Id)

	_, err = svc.Abandon(ctx, &avrpc.AbandonRequest{TempKey: stage2.Response.TempKey})
	require.NoError(t, err)
	_, err = svc.Abandon(ctx, &avrpc.AbandonRequest{TempKey: stage2.Response.TempKey})
	require.NoError(t, err, "Abandon is idempotent")

	// 4. Stat + Download
	stat, err := svc.Stat(ctx, &avrpc.StatRequest{Tenant: "tenantA", Hash: "aaaa"})
	require.NoError(t, err)
	assert.True(t, stat.Exists)

	dl := &mockDownloadStream{}
	require.NoError(t, svc.Download(&avrpc.DownloadRequest{Tenant: "tenantA", Hash: "aaaa"}, dl))
	assert.Equal(t, "b1", string(dl.Bytes()))

	// 5. Delete -> Stat 不存在，Download NotFound
	_, err = svc.Delete(ctx, &avrpc.DeleteRequest{Tenant: "tenantA", Hash: "aaaa"})
	require.NoError(t, err)

	stat, err = svc.Stat(ctx, &avrpc.StatRequest{Tenant: "tenantA", Hash: "aaaa"})
	require.NoError(t, err)
	assert.False(t, stat.Exists)

	err = svc.Download(&avrpc.DownloadRequest{Tenant: "tenantA", Hash: "aaaa"}, &mockDownloadStream{})
	requireCode(t, err, codes.NotFound)
}

func TestArtifactService_Download_LargeContent(t *testing.T) {
	svc, _ := setupTestService(t)

	// 跨越多个下载帧
	content := strings.Repeat("0123456789abcdef", 10000)
	up := &mockUploadStream{Requests: uploadFrames(&avrpc.UploadMeta{Tenant: "acme"}, content)}
	require.NoError(t, svc.Upload(up))

	dl := &mockDownloadStream{}
	require.NoError(t, svc.Download(&avrpc.DownloadRequest{Tenant: "acme", Hash: up.Response.Sha1}, dl))
	assert.Greater(t, len(dl.Chunks), 1)
	assert.Equal(t, content, string(dl.Bytes()))
}

func TestArtifactService_PurgeTenant(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	for i, tenant := range []string{"t1", "t1", "t2"} {
		up := &mockUploadStream{Requests: uploadFrames(&avrpc.UploadMeta{Tenant: tenant}, fmt.Sprintf("content-%d", i))}
		require.NoError(t, svc.Upload(up))
	}

	resp, err := svc.PurgeTenant(ctx, &avrpc.PurgeTenantRequest{Tenant: "t1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Deleted)

	stat, err := svc.Stat(ctx, &avrpc.StatRequest{Tenant: "t2", Hash: sha1Hex("content-2")})
	require.NoError(t, err)
	assert.True(t, stat.Exists)
}

func TestArtifactService_InvalidArguments(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	_, err := svc.Stat(ctx, &avrpc.StatRequest{Tenant: "t", Hash: "zz"})
	requireCode(t, err, codes.InvalidArgument)

	_, err = svc.Commit(ctx, &avrpc.CommitRequest{Tenant: "t", ContentHash: "aaaa", TempKey: "nope"})
	requireCode(t, err, codes.InvalidArgument)

	_, err = svc.Commit(ctx, &avrpc.CommitRequest{Tenant: "t", ContentHash: "aaaa", TempKey: "TMP_missing"})
	requireCode(t, err, codes.NotFound)

	_, err = svc.Delete(ctx, &avrpc.DeleteRequest{Tenant: "t", Hash: ""})
	requireCode(t, err, codes.InvalidArgument)
}

func TestToStatus(t *testing.T) {
	ctx := context.Background()
	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want codes.Code
	}{
		{"unavailable", ctx, fmt.Errorf("find: %w", artifact.ErrStoreUnavailable), codes.Unavailable},
		{"invariant", ctx, artifact.ErrInvariantViolation, codes.Internal},
		{"digest", ctx, artifact.ErrDigestMismatch, codes.DataLoss},
		{"staging", ctx, artifact.ErrStagingNotFound, codes.NotFound},
		{"hash", ctx, artifact.ErrInvalidHash, codes.InvalidArgument},
		{"passthrough", ctx, status.Error(codes.ResourceExhausted, "too big"), codes.ResourceExhausted},
		{"unknown", ctx, errors.New("boom"), codes.Internal},
		{"cancelled wins", cancelled, artifact.ErrStoreUnavailable, codes.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireCode(t, toStatus(tt.ctx, "op", tt.err), tt.want)
		})
	}
}
