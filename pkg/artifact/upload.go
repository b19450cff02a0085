package artifact

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"artifactvault/pkg/digest"
	"artifactvault/pkg/types"
)

// UploadRequest 一次完整上传：暂存 -> 计算摘要 -> 校验 -> 提交 -> 清理
type UploadRequest struct {
	Tenant      types.Tenant
	ContentType string
	Content     io.Reader
	// Expected 调用方声明的摘要，非空字段必须与服务端计算结果一致
	Expected digest.Set
}

type UploadResult struct {
	Artifact Artifact
	State    CommitState
	Digests  digest.Set
}

// Upload 用 SHA-1 作为内容地址、MD5 作为辅助摘要提交上传
// 提交失败、校验失败或去重命中时，暂存记录都会被丢弃
func (r *Repository) Upload(ctx context.Context, req UploadRequest) (UploadResult, error) {
	dr := digest.NewReader(req.Content)

	key, err := r.Stage(ctx, dr)
	if err != nil {
		return UploadResult{}, err
	}
	sum := dr.Sum()

	if err := sum.Verify(req.Expected); err != nil {
		r.abandonQuietly(ctx, key)
		return UploadResult{}, fmt.Errorf("%w: %w", ErrDigestMismatch, err)
	}

	art, state, err := r.CommitWithState(ctx, CommitRequest{
		Tenant:      req.Tenant,
		ContentHash: types.Hash(sum.SHA1),
		AuxHash:     sum.MD5,
		ContentType: req.ContentType,
		TempKey:     key,
	})
	if err != nil {
		r.abandonQuietly(ctx, key)
		return UploadResult{}, err
	}
	if state == StateDeduplicated {
		r.abandonQuietly(ctx, key)
	}

	return UploadResult{Artifact: art, State: state, Digests: sum}, nil
}

// abandonQuietly 清理失败只打日志，不覆盖主流程的错误
func (r *Repository) abandonQuietly(ctx context.Context, key types.TempKey) {
	if err := r.AbandonStaging(ctx, key); err != nil {
		r.logger.Warn("failed to discard staged upload",
			slog.String("temp_key", key.String()),
			slog.Any("err", err),
		)
	}
}
