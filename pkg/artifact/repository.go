package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"artifactvault/pkg/lock"
	"artifactvault/pkg/storage"
	"artifactvault/pkg/types"
)

// CommitState 一次提交的终态
// Staged -> Checked -> {Promoted | Deduplicated}
type CommitState int

const (
	StatePromoted CommitState = iota + 1
	StateDeduplicated
)

func (s CommitState) String() string {
	switch s {
	case StatePromoted:
		return "promoted"
	case StateDeduplicated:
		return "deduplicated"
	default:
		return "unknown"
	}
}

// CommitRequest 把一个暂存的上传提交到 (Tenant, ContentHash)
type CommitRequest struct {
	Tenant      types.Tenant
	ContentHash types.Hash
	// AuxHash 可选的 MD5，非空时会和后端算出的 MD5 比对并写入元数据
	AuxHash     string
	ContentType string
	TempKey     types.TempKey
}

// Repository 是核心编排者：去重提交、租户隔离的读取与删除
type Repository struct {
	backend    storage.Backend
	staging    *Staging
	addressing *Addressing
	locker     lock.Locker
	logger     *slog.Logger
	sanitize   Sanitizer
}

type Option func(*Repository)

// WithSanitizer 替换默认的租户规范化策略 (trim + 大写)
func WithSanitizer(s Sanitizer) Option {
	return func(r *Repository) { r.sanitize = s }
}

// WithLocker 按 (tenant, hash) 串行化提交，配合后端唯一约束使用
func WithLocker(l lock.Locker) Option {
	return func(r *Repository) { r.locker = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

func NewRepository(backend storage.Backend, opts ...Option) *Repository {
	r := &Repository{
		backend:  backend,
		locker:   lock.Nop{},
		logger:   slog.Default(),
		sanitize: SanitizeUpper,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(slog.String("component", "artifact-repository"))
	r.staging = NewStaging(backend)
	r.addressing = NewAddressing(backend, r.sanitize, r.logger)
	return r
}

// Addressing 暴露地址计算 (只读)
func (r *Repository) Addressing() *Addressing { return r.addressing }

// Stage 把原始字节写入暂存区
func (r *Repository) Stage(ctx context.Context, content io.Reader) (types.TempKey, error) {
	return r.staging.Store(ctx, content)
}

// Commit 把暂存区的上传提升为制品；已存在时直接返回已有制品
func (r *Repository) Commit(ctx context.Context, req CommitRequest) (Artifact, error) {
	art, _, err := r.CommitWithState(ctx, req)
	return art, err
}

// CommitWithState 同 Commit，额外返回终态
//
// 去重命中时，tempKey 对应的暂存记录保持不动，由调用方决定何时 AbandonStaging。
// 并发：两个提交可能同时通过去重检查。后端的 (key, tenant) 唯一约束是真正的裁判，
// 输家收到 ErrDuplicateKey 后回退为读取赢家的制品。
func (r *Repository) CommitWithState(ctx context.Context, req CommitRequest) (Artifact, CommitState, error) {
	if !req.ContentHash.IsValid() {
		return Artifact{}, 0, fmt.Errorf("%w: %q", ErrInvalidHash, req.ContentHash)
	}
	if !req.TempKey.IsValid() {
		return Artifact{}, 0, fmt.Errorf("%w: %q", ErrInvalidTempKey, req.TempKey)
	}
	// 同一个摘要的大小写写法必须落到同一个地址上
	req.ContentHash = req.ContentHash.Normalize()

	tenant := r.sanitize(req.Tenant)
	release, err := r.locker.Lock(ctx, tenant+"/"+req.ContentHash.String())
	if err != nil {
		return Artifact{}, 0, unavailable("acquire commit lock", err)
	}
	defer func() {
		if err := release(ctx); err != nil {
			r.logger.Warn("failed to release commit lock", slog.Any("err", err))
		}
	}()

	// 1. Checked
	existing, found, err := r.addressing.FindCommitted(ctx, req.Tenant, req.ContentHash)
	if err != nil {
		return Artifact{}, 0, err
	}
	if found {
		r.logger.Debug("commit deduplicated",
			slog.String("tenant", tenant),
			slog.String("hash", req.ContentHash.Short()),
			slog.Bool("legacy", existing.Legacy),
		)
		return existing, StateDeduplicated, nil
	}

	// 2. Promoted
	staged, found, err := r.staging.Resolve(ctx, req.TempKey)
	if err != nil {
		return Artifact{}, 0, err
	}
	if !found {
		return Artifact{}, 0, fmt.Errorf("%w: %s", ErrStagingNotFound, req.TempKey)
	}

	if req.AuxHash != "" && !strings.EqualFold(req.AuxHash, staged.MD5) {
		return Artifact{}, 0, fmt.Errorf("%w: md5 expected %s, staged content has %s", ErrDigestMismatch, req.AuxHash, staged.MD5)
	}

	md := storage.Metadata{
		storage.MetaSHA1:   req.ContentHash.String(),
		storage.MetaTenant: tenant,
	}
	if req.AuxHash != "" {
		md[storage.MetaMD5] = strings.ToLower(req.AuxHash)
	}
	key := r.addressing.StorageKey(req.Tenant, req.ContentHash)

	err = r.backend.Rename(ctx, staged.ID, key, md, req.ContentType)
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		return r.lostRace(ctx, req)
	case errors.Is(err, storage.ErrNotFound):
		// 暂存记录在检查之后被并发丢弃了
		return Artifact{}, 0, fmt.Errorf("%w: %s", ErrStagingNotFound, req.TempKey)
	case err != nil:
		return Artifact{}, 0, unavailable("promote staged upload", err)
	}

	staged.Key = key
	staged.Metadata = md
	staged.ContentType = req.ContentType

	r.logger.Info("artifact committed",
		slog.String("tenant", tenant),
		slog.String("hash", req.ContentHash.Short()),
		slog.Int64("size", staged.Size),
	)
	return fromHandle(staged), StatePromoted, nil
}

// lostRace 唯一约束拒绝了我们的提升：赢家已经写入，读回它
func (r *Repository) lostRace(ctx context.Context, req CommitRequest) (Artifact, CommitState, error) {
	winner, found, err := r.addressing.FindExact(ctx, req.Tenant, req.ContentHash)
	if err != nil {
		return Artifact{}, 0, err
	}
	if !found {
		// 赢家在这期间又被删掉了，交给调用方重试
		return Artifact{}, 0, fmt.Errorf("%w: duplicate rejected but no winner for %s", ErrInvariantViolation, req.ContentHash)
	}
	r.logger.Info("concurrent commit lost race, returning winner",
		slog.String("hash", req.ContentHash.Short()),
		slog.String("winner_id", winner.ID),
	)
	return winner, StateDeduplicated, nil
}

// Retrieve 查找制品；找不到返回 (零值, false, nil)
// hash 不是合法十六进制时返回 ErrInvalidHash，而不是“找不到”
func (r *Repository) Retrieve(ctx context.Context, tenant types.Tenant, hash types.Hash) (Artifact, bool, error) {
	if !hash.IsValid() {
		return Artifact{}, false, fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}
	return r.addressing.FindCommitted(ctx, tenant, hash.Normalize())
}

// Open 打开制品内容，调用方负责 Close
func (r *Repository) Open(ctx context.Context, art Artifact) (io.ReadCloser, error) {
	rc, err := r.backend.Open(ctx, art.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: content of %s is missing", ErrInvariantViolation, art.StorageKey)
	}
	if err != nil {
		return nil, unavailable("open artifact", err)
	}
	return rc, nil
}

// DeleteByHash 只删除租户精确匹配的记录 (不走 legacy 回退)，不存在时静默返回
func (r *Repository) DeleteByHash(ctx context.Context, tenant types.Tenant, hash types.Hash) error {
	if !hash.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}
	art, found, err := r.addressing.FindExact(ctx, tenant, hash.Normalize())
	if err != nil || !found {
		return err
	}

	// 按内部 ID 删除，避免 filename 不唯一时误删
	if err := r.backend.Delete(ctx, art.ID); err != nil {
		return unavailable("delete artifact", err)
	}
	return nil
}

// DeleteByTenant 批量删除该租户的全部制品，不碰没有 tenant 字段的 legacy 记录
func (r *Repository) DeleteByTenant(ctx context.Context, tenant types.Tenant) (int64, error) {
	sanitized := r.sanitize(tenant)
	n, err := r.backend.DeleteMany(ctx, storage.Query{Tenant: storage.TenantIs(sanitized)})
	if err != nil {
		return 0, unavailable("delete tenant artifacts", err)
	}
	r.logger.Info("tenant purged", slog.String("tenant", sanitized), slog.Int64("deleted", n))
	return n, nil
}

// AbandonStaging 丢弃一个不再提交的暂存上传。幂等
func (r *Repository) AbandonStaging(ctx context.Context, key types.TempKey) error {
	return r.staging.Discard(ctx, key)
}
