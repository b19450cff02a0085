package commands

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	avrpc "artifactvault/pkg/api/avrpc/v1"
	"artifactvault/pkg/client"
	"artifactvault/pkg/digest"
	"artifactvault/pkg/ignore"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	pushJobs        int
	pushExcludes    []string
	pushContentType string
)

var pushCmd = &cobra.Command{
	Use:   "push <path>...",
	Short: "Upload files or directories as artifacts of the current tenant",
	Long: `Each file is hashed locally, then uploaded with its SHA-1 so the server can verify it.
Directories are walked recursively; paths matched by .avignore or --exclude are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := collectFiles(args, pushExcludes)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to push.")
			return nil
		}

		cli, err := GetRemoteClient()
		if err != nil {
			return err
		}
		defer cli.Close()

		return pushFiles(cmd.Context(), cmd.OutOrStdout(), cli, files)
	},
}

// collectFiles 展开目录参数，目录内应用忽略规则；直接点名的文件总是上传
func collectFiles(args []string, excludes []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		matcher, err := ignore.NewMatcher(arg, excludes...)
		if err != nil {
			return nil, fmt.Errorf("failed to load ignore rules in %s: %w", arg, err)
		}
		err = matcher.Walk(arg, func(rel string, _ fs.FileInfo) error {
			files = append(files, filepath.Join(arg, rel))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// pushFiles 并发上传，单个文件失败不影响其他文件
func pushFiles(ctx context.Context, out io.Writer, cli *client.AVClient, files []string) error {
	fmt.Fprintf(out, "📦 Pushing %d files...\n", len(files))

	var (
		mu                sync.Mutex
		uploaded, deduped int32
		failures          int32
	)
	report := func(format string, a ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, format, a...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(pushJobs, 1))
	for _, path := range files {
		path := path
		g.Go(func() error {
			resp, err := pushSingleFile(gctx, cli, path)
			if err != nil {
				atomic.AddInt32(&failures, 1)
				report("❌ %s: %v\n", path, err)
				return nil
			}
			if resp.Deduplicated {
				atomic.AddInt32(&deduped, 1)
				report("✅ %s (already stored, %s)\n", path, short(resp.Sha1))
			} else {
				atomic.AddInt32(&uploaded, 1)
				report("✅ %s (%s)\n", path, short(resp.Sha1))
			}
			return nil
		})
	}
	_ = g.Wait()

	fmt.Fprintf(out, "\nSummary: %d uploaded, %d deduplicated, %d failed.\n", uploaded, deduped, failures)
	if failures > 0 {
		return fmt.Errorf("%d files failed to upload", failures)
	}
	return nil
}

func pushSingleFile(ctx context.Context, cli *client.AVClient, path string) (*avrpc.UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// 1. 先在本地算一遍摘要，服务端会用它校验传输完整性
	dr := digest.NewReader(f)
	if _, err := io.Copy(io.Discard, dr); err != nil {
		return nil, err
	}
	sum := dr.Sum()
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	contentType := pushContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(path))
	}

	// 2. 上传
	return cli.Upload(ctx, &avrpc.UploadMeta{
		Tenant:      currentTenant(),
		ContentType: contentType,
		Sha1:        sum.SHA1,
		Md5:         sum.MD5,
	}, f)
}

// short 日志里只显示 Hash 前 8 位
func short(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

func init() {
	pushCmd.Flags().IntVarP(&pushJobs, "jobs", "j", 4, "Number of concurrent uploads")
	pushCmd.Flags().StringArrayVar(&pushExcludes, "exclude", nil, "Extra gitignore-style pattern to skip (repeatable)")
	pushCmd.Flags().StringVar(&pushContentType, "content-type", "", "Content type for all files (default: guessed from extension)")
	rootCmd.AddCommand(pushCmd)
}
