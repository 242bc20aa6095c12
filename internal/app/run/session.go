package run

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"

	"github.com/John-Robertt/vidmover/internal/config"
	"github.com/John-Robertt/vidmover/internal/domain"
	"github.com/John-Robertt/vidmover/internal/infra/fsx"
	"github.com/John-Robertt/vidmover/internal/move"
	"github.com/John-Robertt/vidmover/internal/scan"
)

type options struct {
	fs     billy.Filesystem
	logger *slog.Logger
}

// Option 配置一次运行。
type Option func(*options)

// WithFS 指定文件系统（默认本机文件系统）。
func WithFS(fsys billy.Filesystem) Option {
	return func(o *options) { o.fs = fsys }
}

// WithLogger 指定运行日志；nil 表示不输出。
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Session 持有一次“扫描 -> 确认 -> 移动”的状态，由调用方持有（CLI 或 TUI 各自一个）。
//
// 方法不可并发调用；扫描结果在 Move 之后清空，需要重新 Scan 才能再次移动。
type Session struct {
	eff config.EffectiveConfig
	o   options

	files []domain.VideoFile
	rr    domain.RunReport
}

// NewSession 创建一个新会话，并分配 RunID。
func NewSession(eff config.EffectiveConfig, opts ...Option) *Session {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	o.fs = fsx.OrOS(o.fs)
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Session{
		eff: eff,
		o:   o,
		rr: domain.RunReport{
			RunID:       uuid.NewString(),
			Source:      eff.Source,
			Destination: eff.Destination,
			DryRun:      !eff.Apply,
			StartedAt:   time.Now().UTC(),
			Files:       make([]domain.FileResult, 0, 128),
		},
	}
}

// Config 返回会话使用的生效配置。
func (s *Session) Config() config.EffectiveConfig { return s.eff }

// Validate 检查 source/destination；失败时同时记入报告。
func (s *Session) Validate() error {
	if err := Validate(s.eff.Source, s.eff.Destination, s.o.fs); err != nil {
		s.fail(Code(err), err)
		return err
	}
	return nil
}

// Scan 扫描 source 并替换会话中的文件列表。onFound 可为 nil。
func (s *Session) Scan(ctx context.Context, onFound func(domain.VideoFile)) ([]domain.VideoFile, error) {
	if err := s.checkCtx(ctx); err != nil {
		return nil, err
	}

	files, err := scan.Scan(s.eff.Source, s.eff.Destination, onFound,
		scan.WithFS(s.o.fs),
		scan.WithLogger(s.o.logger),
		scan.WithExcludeDirs(s.eff.ExcludeDirs),
	)
	if err != nil {
		e := &Error{Code: domain.ErrCodeScanFailed, Path: s.eff.Source, Err: err}
		s.fail(e.Code, e)
		return nil, e
	}

	s.files = files
	s.o.logger.Info("扫描完成", "source", s.eff.Source, "files", len(files), "bytes", s.TotalSize())
	return files, nil
}

// Files 返回当前待移动的文件列表（副本）。
func (s *Session) Files() []domain.VideoFile {
	return append([]domain.VideoFile(nil), s.files...)
}

// TotalSize 返回当前文件列表的总字节数（扫描时的快照）。
func (s *Session) TotalSize() int64 {
	var n int64
	for _, f := range s.files {
		n += f.Size
	}
	return n
}

// Plan 计算当前文件列表的移动计划（dry-run），不改动任何文件，也不清空列表。
func (s *Session) Plan(ctx context.Context) ([]domain.MoveOutcome, error) {
	if err := s.checkCtx(ctx); err != nil {
		return nil, err
	}

	outcomes, err := move.Plan(s.files, s.eff.Source, s.eff.Destination, move.WithFS(s.o.fs))
	if err != nil {
		e := &Error{Code: domain.ErrCodeDestinationFailed, Path: s.eff.Destination, Err: err}
		s.fail(e.Code, e)
		s.recordAllFailed(e)
		return nil, e
	}

	for _, oc := range outcomes {
		s.record(oc, domain.FileStatusPlanned)
	}
	return outcomes, nil
}

// Move 移动当前文件列表；完成后清空列表。obs 可为 nil。
//
// 单个文件失败不会返回 error（见 Result.Failed / obs.OnError）；
// 只有 destination 无法创建等整体性失败才返回 *Error。
func (s *Session) Move(ctx context.Context, obs move.Observer) (move.Result, error) {
	if err := s.checkCtx(ctx); err != nil {
		return move.Result{}, err
	}
	// 无论成功与否，一次移动结束后列表都作废。
	defer func() { s.files = nil }()

	res, err := move.MoveAll(s.files, s.eff.Source, s.eff.Destination, obs,
		move.WithFS(s.o.fs),
		move.WithLogger(s.o.logger),
	)
	if err != nil {
		e := &Error{Code: domain.ErrCodeDestinationFailed, Path: s.eff.Destination, Err: err}
		s.fail(e.Code, e)
		s.recordAllFailed(e)
		return move.Result{}, e
	}

	for _, oc := range res.Outcomes {
		s.record(oc, domain.FileStatusMoved)
	}
	s.o.logger.Info("移动完成", "moved", res.Moved, "failed", res.Failed)
	return res, nil
}

// Report 返回截至目前的 RunReport（已 Finalize）。可多次调用。
func (s *Session) Report() domain.RunReport {
	rr := s.rr
	rr.Files = append([]domain.FileResult(nil), s.rr.Files...)
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

func (s *Session) record(oc domain.MoveOutcome, okStatus string) {
	fr := domain.FileResult{
		Src:    oc.Plan.SrcAbs,
		Dst:    oc.Plan.DstAbs,
		Size:   oc.Plan.Size,
		Status: okStatus,
	}
	if !oc.OK() {
		fr.Status = domain.FileStatusFailed
		fr.ErrorMsg = oc.Err.Error()
	}
	s.rr.Files = append(s.rr.Files, fr)
}

// recordAllFailed 把整批文件记为失败（destination 不可用时，扫描到的文件仍要出现在报告里）。
func (s *Session) recordAllFailed(err error) {
	for _, f := range s.files {
		s.rr.Files = append(s.rr.Files, domain.FileResult{
			Src:      f.AbsPath,
			Size:     f.Size,
			Status:   domain.FileStatusFailed,
			ErrorMsg: err.Error(),
		})
	}
}

func (s *Session) fail(code string, err error) {
	s.rr.ErrorCode = code
	s.rr.ErrorMsg = err.Error()
	s.o.logger.Error("运行失败", "code", code, "err", err)
}

func (s *Session) checkCtx(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		e := &Error{Code: domain.ErrCodeCanceled, Err: err}
		s.fail(e.Code, e)
		return e
	}
	return nil
}
