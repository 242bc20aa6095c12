package scan

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/John-Robertt/vidmover/internal/domain"
	"github.com/John-Robertt/vidmover/internal/infra/fsx"
)

var errNotRegular = errors.New("不是普通文件")

type options struct {
	fs          billy.Filesystem
	logger      *slog.Logger
	excludeDirs []string
}

// Option 配置一次扫描。
type Option func(*options)

// WithFS 指定文件系统（默认本机文件系统）。
func WithFS(fsys billy.Filesystem) Option {
	return func(o *options) { o.fs = fsys }
}

// WithLogger 指定单条失败的旁路日志；nil 表示不输出。
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithExcludeDirs 追加排除目录：相对路径按 source 解析，绝对路径按原样处理。
// destination 的排除始终生效，与这里无关。
func WithExcludeDirs(dirs []string) Option {
	return func(o *options) { o.excludeDirs = append(o.excludeDirs, dirs...) }
}

func buildOptions(opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	o.fs = fsx.OrOS(o.fs)
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Scan 扫描 source 下的视频文件，并跳过 destination 及其所有子目录。
//
// 规则：
// - source/destination 先解析为规范绝对路径（展开符号链接），再比较包含关系
// - 自顶向下遍历；同一目录内按文件名字典序（结果在单次运行内确定）
// - 单个文件取元数据失败：跳过并记日志，不影响整体
// - onFound（可为 nil）按发现顺序对每个结果同步调用一次，不能过滤结果
//
// 只有 source 根本身不可遍历时才返回错误。
func Scan(source, destination string, onFound func(domain.VideoFile), opts ...Option) ([]domain.VideoFile, error) {
	o := buildOptions(opts)

	root, err := fsx.Resolve(o.fs, source)
	if err != nil {
		return nil, err
	}
	dest, err := fsx.Resolve(o.fs, destination)
	if err != nil {
		return nil, err
	}
	excluded := buildExcluded(o.fs, root, dest, o.excludeDirs, o.logger)

	files := make([]domain.VideoFile, 0, 128)
	err = util.Walk(o.fs, root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			if info != nil && info.IsDir() {
				// 子目录不可读：跳过该目录，继续其他部分。
				o.logger.Warn("读取目录失败，已跳过", "path", path, "err", walkErr)
				return filepath.SkipDir
			}
			if IsVideo(filepath.Base(path)) {
				o.logger.Warn("读取文件信息失败，已跳过", "path", path, "err", walkErr)
			}
			return nil
		}

		if info.IsDir() {
			if isExcluded(path, excluded) {
				return filepath.SkipDir
			}
			return nil
		}

		name := info.Name()
		if !IsVideo(name) {
			return nil
		}

		size, err := fileSize(o.fs, path, info)
		if err != nil {
			o.logger.Warn("读取文件信息失败，已跳过", "path", path, "err", err)
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			o.logger.Warn("计算相对路径失败，已跳过", "path", path, "err", err)
			return nil
		}

		f := domain.VideoFile{
			AbsPath: path,
			RelPath: rel,
			Name:    name,
			Ext:     strings.ToLower(filepath.Ext(name)),
			Size:    size,
		}
		files = append(files, f)
		if onFound != nil {
			onFound(f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// fileSize 返回文件大小；符号链接取其目标的大小（断链视为元数据失败）。
func fileSize(fsys billy.Filesystem, path string, info os.FileInfo) (int64, error) {
	if info.Mode()&os.ModeSymlink == 0 {
		return info.Size(), nil
	}
	fi, err := fsys.Stat(path)
	if err != nil {
		return 0, err
	}
	if fi.IsDir() {
		// 指向目录的链接不是文件，也不跟随进入。
		return 0, &os.PathError{Op: "stat", Path: path, Err: errNotRegular}
	}
	return fi.Size(), nil
}

func buildExcluded(fsys billy.Filesystem, root, dest string, excludeDirs []string, logger *slog.Logger) []string {
	excluded := make([]string, 0, 1+len(excludeDirs))
	excluded = append(excluded, dest)

	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if !filepath.IsAbs(x) {
			// x 是相对路径：相对 source。
			x = filepath.Join(root, x)
		}
		p, err := fsx.Resolve(fsys, x)
		if err != nil {
			logger.Warn("解析排除目录失败，按字面处理", "dir", x, "err", err)
			p = filepath.Clean(x)
		}
		excluded = append(excluded, p)
	}
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if fsx.IsUnder(path, base) {
			return true
		}
	}
	return false
}
