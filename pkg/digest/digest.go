// Package digest 在读取数据流的同时计算摘要，上传只需读一遍
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"
)

var ErrMismatch = errors.New("digest mismatch")

// Set 十六进制摘要，空字段表示未知
type Set struct {
	SHA1   string
	MD5    string
	SHA256 string
}

// Verify 只比较 expected 中非空的字段，大小写不敏感
func (s Set) Verify(expected Set) error {
	checks := []struct {
		name      string
		want, got string
	}{
		{"sha1", expected.SHA1, s.SHA1},
		{"md5", expected.MD5, s.MD5},
		{"sha256", expected.SHA256, s.SHA256},
	}
	for _, c := range checks {
		if c.want == "" {
			continue
		}
		if !strings.EqualFold(c.want, c.got) {
			return fmt.Errorf("%w: %s expected %s, got %s", ErrMismatch, c.name, c.want, c.got)
		}
	}
	return nil
}

// Reader 包装 io.Reader，经过它读出的字节都会被计入摘要
type Reader struct {
	r      io.Reader
	sha1   hash.Hash
	md5    hash.Hash
	sha256 hash.Hash
	n      int64
}

func NewReader(r io.Reader) *Reader {
	d := &Reader{
		sha1:   sha1.New(),
		md5:    md5.New(),
		sha256: sha256.New(),
	}
	d.r = io.TeeReader(r, io.MultiWriter(d.sha1, d.md5, d.sha256))
	return d
}

func (d *Reader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	d.n += int64(n)
	return n, err
}

// Size 目前为止读过的字节数
func (d *Reader) Size() int64 { return d.n }

// Sum 目前为止读过的字节的摘要
func (d *Reader) Sum() Set {
	return Set{
		SHA1:   hex.EncodeToString(d.sha1.Sum(nil)),
		MD5:    hex.EncodeToString(d.md5.Sum(nil)),
		SHA256: hex.EncodeToString(d.sha256.Sum(nil)),
	}
}
