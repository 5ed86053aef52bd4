package domain

import (
	"time"
)

const (
	StatusWritten = "written"
	StatusPlanned = "planned"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

const (
	ErrCodeExists         = "exists"
	ErrCodeTargetConflict = "target_conflict"
	ErrCodeIOFailed       = "io_failed"
	ErrCodeCanceled       = "canceled"
	ErrCodeOutLocked      = "out_locked"
	ErrCodeEmptyInput     = "empty_input"
	ErrCodeNoMatches      = "no_matches"
	ErrCodeSourceInvalid  = "source_invalid"
	ErrCodeConfigInvalid  = "config_invalid"
)

// ExportReport 是对外稳定输出（report.json / report.yaml / stdout JSON）的结构。
type ExportReport struct {
	SessionID string `json:"session_id" yaml:"session_id"`
	OutDir    string `json:"out_dir" yaml:"out_dir"`
	DryRun    bool   `json:"dry_run" yaml:"dry_run"`
	Reason    Reason `json:"reason" yaml:"reason"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	Summary ReportSummary `json:"summary" yaml:"summary"`
	Items   []ItemResult  `json:"items" yaml:"items"`
}

type ReportSummary struct {
	Written int `json:"written" yaml:"written"`
	Planned int `json:"planned" yaml:"planned"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Failed  int `json:"failed" yaml:"failed"`
}

type ItemResult struct {
	Line   int    `json:"line" yaml:"line"`
	Name   string `json:"name" yaml:"name"`
	File   string `json:"file" yaml:"file"` // 相对 out 目录的最终文件名（可能带 __N 后缀）
	Target string `json:"target" yaml:"target"`

	Status    string `json:"status" yaml:"status"`
	ErrorCode string `json:"error_code" yaml:"error_code"`
	ErrorMsg  string `json:"error_msg" yaml:"error_msg"`
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) summary 由 items 计算得出
//
// items 保持记录顺序，不排序：批量导出的顺序本身就是契约的一部分。
func (r *ExportReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Items == nil {
		r.Items = []ItemResult{}
	}

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusWritten:
			s.Written++
		case StatusPlanned:
			s.Planned++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// OK 表示本次运行既解析到了记录，也没有失败条目。
func (r ExportReport) OK() bool {
	return r.Reason == ReasonOK && r.Summary.Failed == 0
}
