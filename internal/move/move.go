package move

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/go-git/go-billy/v5"

	"github.com/John-Robertt/vidmover/internal/domain"
	"github.com/John-Robertt/vidmover/internal/infra/fsx"
)

type options struct {
	fs     billy.Filesystem
	logger *slog.Logger
}

// Option 配置一次移动。
type Option func(*options)

// WithFS 指定文件系统（默认本机文件系统）。
func WithFS(fsys billy.Filesystem) Option {
	return func(o *options) { o.fs = fsys }
}

// WithLogger 指定单条失败的旁路日志；nil 表示不输出。
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
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

// Result 是一次批量移动的汇总；Moved+Failed 恒等于输入长度。
type Result struct {
	Moved    int
	Failed   int
	Outcomes []domain.MoveOutcome
}

// MoveAll 把 files 从 source 移到 destination，保留相对 source 的目录结构。
//
// - destination 不存在则创建（幂等）；创建失败直接返回 error，不处理任何文件
// - 严格按输入顺序逐个处理，不并发
// - 单个文件失败只计数 + 回调 + 记日志，继续处理下一个；不重试
// - 不清理 source 中移空的目录
//
// obs 可为 nil。
func MoveAll(files []domain.VideoFile, source, destination string, obs Observer, opts ...Option) (Result, error) {
	o := buildOptions(opts)

	srcRoot, dstRoot, err := resolveRoots(o, source, destination)
	if err != nil {
		return Result{}, err
	}
	if err := o.fs.MkdirAll(dstRoot, 0o755); err != nil {
		return Result{}, fmt.Errorf("创建目标目录 %q 失败：%w", dstRoot, err)
	}

	total := len(files)
	res := Result{Outcomes: make([]domain.MoveOutcome, 0, total)}

	for _, f := range files {
		oc := moveOne(o.fs, f, srcRoot, dstRoot)
		res.Outcomes = append(res.Outcomes, oc)

		if oc.OK() {
			res.Moved++
			o.logger.Debug("已移动", "src", oc.Plan.SrcAbs, "dst", oc.Plan.DstAbs)
			if obs != nil {
				obs.OnProgress(res.Moved, total)
			}
			continue
		}

		res.Failed++
		o.logger.Warn("移动失败", "src", oc.Plan.SrcAbs, "err", oc.Err)
		if obs != nil {
			obs.OnError(oc.Plan.SrcAbs, oc.Err)
		}
	}

	return res, nil
}

func moveOne(fsys billy.Filesystem, f domain.VideoFile, srcRoot, dstRoot string) domain.MoveOutcome {
	p, err := PlanOne(f, srcRoot, dstRoot)
	if err != nil {
		return domain.MoveOutcome{Plan: domain.MovePlan{SrcAbs: f.AbsPath, Size: f.Size}, Err: err}
	}

	if err := fsys.MkdirAll(filepath.Dir(p.DstAbs), 0o755); err != nil {
		return domain.MoveOutcome{Plan: p, Err: fmt.Errorf("创建目录失败：%w", err)}
	}
	if err := fsx.Move(fsys, p.SrcAbs, p.DstAbs); err != nil {
		return domain.MoveOutcome{Plan: p, Err: err}
	}
	return domain.MoveOutcome{Plan: p}
}

func resolveRoots(o options, source, destination string) (string, string, error) {
	srcRoot, err := fsx.Resolve(o.fs, source)
	if err != nil {
		return "", "", fmt.Errorf("解析 source 失败：%w", err)
	}
	dstRoot, err := fsx.Resolve(o.fs, destination)
	if err != nil {
		return "", "", fmt.Errorf("解析 destination 失败：%w", err)
	}
	return srcRoot, dstRoot, nil
}
