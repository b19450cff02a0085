// Package avrpc 定义 ArtifactService 的线上消息。
// 字段用整数 key 编码 (keyasint)，新增字段只能追加编号，不能复用。
package avrpc

// UploadMeta 是 Upload 流的第一帧
type UploadMeta struct {
	Tenant      string `cbor:"1,keyasint,omitempty"`
	ContentType string `cbor:"2,keyasint,omitempty"`
	// 可选的预期摘要，服务端会校验
	Sha1   string `cbor:"3,keyasint,omitempty"`
	Md5    string `cbor:"4,keyasint,omitempty"`
	Sha256 string `cbor:"5,keyasint,omitempty"`
}

// UploadRequest 是 Meta 和 Chunk 二选一
type UploadRequest struct {
	Meta  *UploadMeta `cbor:"1,keyasint,omitempty"`
	Chunk []byte      `cbor:"2,keyasint,omitempty"`
}

func (r *UploadRequest) GetMeta() *UploadMeta {
	if r == nil {
		return nil
	}
	return r.Meta
}

func (r *UploadRequest) GetChunk() []byte {
	if r == nil {
		return nil
	}
	return r.Chunk
}

// ArtifactInfo 已提交制品的描述
type ArtifactInfo struct {
	Id          string `cbor:"1,keyasint,omitempty"`
	StorageKey  string `cbor:"2,keyasint,omitempty"`
	ContentHash string `cbor:"3,keyasint,omitempty"`
	Tenant      string `cbor:"4,keyasint,omitempty"`
	Legacy      bool   `cbor:"5,keyasint,omitempty"`
	ContentType string `cbor:"6,keyasint,omitempty"`
	Md5         string `cbor:"7,keyasint,omitempty"`
	Size        int64  `cbor:"8,keyasint,omitempty"`
	// CreatedAt Unix 毫秒
	CreatedAt int64 `cbor:"9,keyasint,omitempty"`
}

type UploadResponse struct {
	Artifact     *ArtifactInfo `cbor:"1,keyasint,omitempty"`
	Deduplicated bool          `cbor:"2,keyasint,omitempty"`
	Sha1         string        `cbor:"3,keyasint,omitempty"`
	Md5          string        `cbor:"4,keyasint,omitempty"`
	Sha256       string        `cbor:"5,keyasint,omitempty"`
}

// StageRequest 只有数据帧
type StageRequest struct {
	Chunk []byte `cbor:"1,keyasint,omitempty"`
}

func (r *StageRequest) GetChunk() []byte {
	if r == nil {
		return nil
	}
	return r.Chunk
}

type StageResponse struct {
	TempKey string `cbor:"1,keyasint,omitempty"`
	Size    int64  `cbor:"2,keyasint,omitempty"`
}

type CommitRequest struct {
	Tenant      string `cbor:"1,keyasint,omitempty"`
	ContentHash string `cbor:"2,keyasint,omitempty"`
	AuxHash     string `cbor:"3,keyasint,omitempty"`
	ContentType string `cbor:"4,keyasint,omitempty"`
	TempKey     string `cbor:"5,keyasint,omitempty"`
}

type CommitResponse struct {
	Artifact     *ArtifactInfo `cbor:"1,keyasint,omitempty"`
	Deduplicated bool          `cbor:"2,keyasint,omitempty"`
}

type AbandonRequest struct {
	TempKey string `cbor:"1,keyasint,omitempty"`
}

type AbandonResponse struct{}

type StatRequest struct {
	Tenant string `cbor:"1,keyasint,omitempty"`
	Hash   string `cbor:"2,keyasint,omitempty"`
}

type StatResponse struct {
	Exists   bool          `cbor:"1,keyasint,omitempty"`
	Artifact *ArtifactInfo `cbor:"2,keyasint,omitempty"`
}

type DownloadRequest struct {
	Tenant string `cbor:"1,keyasint,omitempty"`
	Hash   string `cbor:"2,keyasint,omitempty"`
}

type DownloadResponse struct {
	Chunk []byte `cbor:"1,keyasint,omitempty"`
}

type DeleteRequest struct {
	Tenant string `cbor:"1,keyasint,omitempty"`
	Hash   string `cbor:"2,keyasint,omitempty"`
}

type DeleteResponse struct{}

type PurgeTenantRequest struct {
	Tenant string `cbor:"1,keyasint,omitempty"`
}

type PurgeTenantResponse struct {
	Deleted int64 `cbor:"1,keyasint,omitempty"`
}
