package domain

import (
	"encoding/json"
	"time"
)

const (
	FileStatusPlanned = "planned"
	FileStatusMoved   = "moved"
	FileStatusFailed  = "failed"
)

const (
	ErrCodeSourceNotFound    = "source_not_found"
	ErrCodeSourceNotDir      = "source_not_dir"
	ErrCodeSameDir           = "same_source_destination"
	ErrCodeScanFailed        = "scan_failed"
	ErrCodeMoveFailed        = "move_failed"
	ErrCodeDestinationFailed = "destination_failed"
	ErrCodeCanceled          = "canceled"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
type RunReport struct {
	RunID       string `json:"run_id"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	DryRun      bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// ErrorCode/ErrorMsg 只用于整次运行级别的失败（前置校验、扫描失败等）。
	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`

	Summary ReportSummary `json:"summary"`
	Files   []FileResult  `json:"files"`
}

type ReportSummary struct {
	Found      int   `json:"found"`
	Planned    int   `json:"planned"`
	Moved      int   `json:"moved"`
	Failed     int   `json:"failed"`
	TotalBytes int64 `json:"total_bytes"`
}

type FileResult struct {
	Src      string `json:"src"`
	Dst      string `json:"dst"`
	Size     int64  `json:"size"`
	Status   string `json:"status"`
	ErrorMsg string `json:"error_msg,omitempty"`
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) summary 由 files 计算得出
//
// files 保持处理顺序，不排序：它就是扫描/移动的实际顺序。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Files == nil {
		r.Files = []FileResult{}
	}

	s := ReportSummary{Found: len(r.Files)}
	for _, f := range r.Files {
		s.TotalBytes += f.Size
		switch f.Status {
		case FileStatusPlanned:
			s.Planned++
		case FileStatusMoved:
			s.Moved++
		case FileStatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// Failed 表示这次运行是否应以非 0 退出码结束。
func (r RunReport) Failed() bool {
	return r.ErrorCode != "" || r.Summary.Failed > 0
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
