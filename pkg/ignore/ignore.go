package ignore

import (
	"io/fs"
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName 用户自定义忽略规则所在的文件
const FileName = ".avignore"

// defaultRules 强制生效，防止把本地元数据或密钥当成制品上传
var defaultRules = []string{
	".av",  // 本地 sqlite 目录和对象目录
	".git", // 忽略 Git 仓库数据

	// --- 安全与配置 ---
	"config.yaml", // 防止 S3 / MinIO Secret Key 泄露
	".env",        // 防止环境变量文件泄露
	FileName,

	// --- 常见垃圾文件 ---
	".DS_Store", // macOS
	"Thumbs.db", // Windows
}

// Matcher 判断一个路径是否应该被 av push 跳过
type Matcher struct {
	ignorer *gitignore.GitIgnore
}

// NewMatcher 合并 默认规则 + rootPath/.avignore + extra (比如命令行 --exclude)
func NewMatcher(rootPath string, extra ...string) (*Matcher, error) {
	rules := append(append([]string{}, defaultRules...), extra...)

	ignoreFilePath := filepath.Join(rootPath, FileName)
	if _, err := os.Stat(ignoreFilePath); err != nil {
		return &Matcher{ignorer: gitignore.CompileIgnoreLines(rules...)}, nil
	}

	ignorer, err := gitignore.CompileIgnoreFileAndLines(ignoreFilePath, rules...)
	if err != nil {
		return nil, err
	}
	return &Matcher{ignorer: ignorer}, nil
}

// Matches path 是相对于 rootPath 的路径 (例如 "data/model.bin")
// 返回 true 表示应该忽略
func (m *Matcher) Matches(path string) bool {
	if m == nil || m.ignorer == nil {
		return false
	}
	return m.ignorer.MatchesPath(filepath.ToSlash(path))
}

// Walk 遍历 root 下所有未被忽略的普通文件，fn 收到的是相对路径
// 被忽略的目录整个跳过，不会再往下走
func (m *Matcher) Walk(root string, fn func(rel string, info fs.FileInfo) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if m.Matches(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(rel, info)
	})
}
