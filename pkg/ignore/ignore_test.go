package ignore

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Defaults(t *testing.T) {
	// 没有 .avignore 的目录
	matcher, err := NewMatcher(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		path     string
		shouldIg bool
	}{
		{".av", true},
		{".av/objects/aa", true}, // 子路径也应该被忽略
		{".git", true},
		{"config.yaml", true},
		{".env", true},
		{".DS_Store", true},
		{"main.go", false},
		{"dist/app.tar.gz", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.shouldIg, matcher.Matches(tt.path), "Path: %s", tt.path)
		})
	}
}

func TestMatcher_WithUserFileAndExtra(t *testing.T) {
	tmpDir := t.TempDir()

	ignoreContent := `
# 这是注释
*.log
temp
!important.log
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, FileName), []byte(ignoreContent), 0644))

	matcher, err := NewMatcher(tmpDir, "*.tmp")
	require.NoError(t, err)

	tests := []struct {
		path     string
		shouldIg bool
	}{
		// --- 默认规则依然生效 ---
		{".av", true},
		{"config.yaml", true},

		// --- 用户规则 ---
		{"app.log", true},
		{"logs/error.log", true},
		{"temp/file", true},

		// --- 命令行规则 ---
		{"build/x.tmp", true},

		{"main.go", false},
		{"important.log", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.shouldIg, matcher.Matches(tt.path), "Path: %s", tt.path)
		})
	}
}

func TestMatcher_Walk(t *testing.T) {
	root := t.TempDir()
	files := []string{
		"release/app.tar.gz",
		"release/app.log",
		"release/notes.txt",
		".av/objects/ab/cdef",
		"top.bin",
	}
	for _, f := range files {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("*.log\n"), 0644))

	matcher, err := NewMatcher(root)
	require.NoError(t, err)

	var got []string
	err = matcher.Walk(root, func(rel string, info fs.FileInfo) error {
		assert.Equal(t, int64(len(filepath.ToSlash(rel))), info.Size())
		got = append(got, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)

	sort.Strings(got)
	assert.Equal(t, []string{"release/app.tar.gz", "release/notes.txt", "top.bin"}, got)
}
