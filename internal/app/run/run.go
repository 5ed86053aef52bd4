package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/John-Robertt/strmgen/internal/app/planner"
	"github.com/John-Robertt/strmgen/internal/config"
	"github.com/John-Robertt/strmgen/internal/domain"
	"github.com/John-Robertt/strmgen/internal/export"
	"github.com/John-Robertt/strmgen/internal/infra/fsx"
	"github.com/John-Robertt/strmgen/internal/linkparse"
)

// Input 是一次 run 的输入文本及其附属选项。
type Input struct {
	// SessionID 写入 report；为空时 report 中也为空。
	SessionID string
	Text      string

	// Preview 非空时，dry-run 会把每条将要写入的 "name<TAB>target" 输出到这里。
	Preview io.Writer
}

// Execute 执行一次导出（dry-run/apply），并返回对外稳定的 ExportReport。
// 单条交付失败只体现在对应 item 上，不影响其他条目。
func Execute(ctx context.Context, eff config.EffectiveConfig, in Input) domain.ExportReport {
	return ExecuteWithObserver(ctx, eff, in, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, in Input, obs Observer) domain.ExportReport {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.ExportReport{
		SessionID: in.SessionID,
		OutDir:    eff.Out,
		DryRun:    !eff.Apply,
		StartedAt: started,
		Items:     []domain.ItemResult{},
	}
	finish := func() domain.ExportReport {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	parseStarted := time.Now()
	records, reason := linkparse.Parse(in.Text, eff.Prefix)
	rr.Reason = reason
	if obs != nil {
		obs.OnPhaseDone("parse", map[string]any{
			"records": len(records),
			"reason":  string(reason),
		}, time.Since(parseStarted))
	}
	if reason != domain.ReasonOK {
		return finish()
	}

	// apply：输出目录必须是目录（不存在则创建）；dry-run 不创建任何东西。
	if eff.Apply {
		if err := fsx.EnsureDir(eff.Out); err != nil {
			code := domain.ErrCodeIOFailed
			if fsx.IsPathTypeConflict(err) {
				code = domain.ErrCodeTargetConflict
			}
			rr.Items = append(rr.Items, syntheticFailed(code, fmt.Sprintf("创建输出目录失败：%v", err)))
			return finish()
		}
	}

	planStarted := time.Now()
	st, err := planner.ReadOutState(eff.Out)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("读取输出目录失败：%v", err)))
		return finish()
	}
	plans := planner.PlanFiles(records, st)
	if obs != nil {
		var existing, renamed int
		for _, p := range plans {
			if p.Exists {
				existing++
			}
			if p.File != p.Record.Name {
				renamed++
			}
		}
		obs.OnPhaseDone("plan", map[string]any{
			"files":    len(plans),
			"existing": existing,
			"renamed":  renamed,
		}, time.Since(planStarted))
	}

	var sink export.Sink
	exp := export.Exporter{}
	if eff.Apply {
		sink = &export.DirSink{Dir: eff.Out, Overwrite: eff.Overwrite}
		exp.Policy = export.PolicyFor(eff.Interval, eff.Immediate)
		exp.Limit = eff.Concurrency
	} else {
		// dry-run 不等待间隔；串行交付让预览顺序与记录顺序一致。
		ps := &previewSink{st: st, overwrite: eff.Overwrite}
		if in.Preview != nil {
			ps.next = &export.WriterSink{W: in.Preview}
		}
		sink = ps
		exp.Policy = export.Immediate{}
		exp.Limit = 1
	}
	exp.Sink = sink

	if obs != nil {
		obs.OnPhaseDone("export", map[string]any{
			"total":       len(plans),
			"concurrency": exp.Limit,
			"interval":    exp.Policy.Offset(1),
		}, 0)
	}

	var mu sync.Mutex
	done := 0
	exp.Notify = func(r export.Result) {
		if obs == nil {
			return
		}
		mu.Lock()
		done++
		n := done
		mu.Unlock()
		obs.OnItemDone(n, len(plans), itemFromResult(r, eff.Apply))
	}

	results, err := exp.ExportPlans(ctx, plans)
	if err != nil {
		code := domain.ErrCodeIOFailed
		if errors.Is(err, fsx.ErrLocked) {
			code = domain.ErrCodeOutLocked
		}
		rr.Items = append(rr.Items, syntheticFailed(code, err.Error()))
		return finish()
	}

	for _, r := range results {
		rr.Items = append(rr.Items, itemFromResult(r, eff.Apply))
	}
	return finish()
}

func itemFromResult(r export.Result, apply bool) domain.ItemResult {
	status, code := r.Status()
	if !apply && status == domain.StatusWritten {
		status = domain.StatusPlanned
	}
	item := domain.ItemResult{
		Line:      r.Record.Line,
		Name:      r.Record.Name,
		File:      r.File,
		Target:    r.Record.Target,
		Status:    status,
		ErrorCode: code,
	}
	if r.Err != nil {
		item.ErrorMsg = r.Err.Error()
	}
	return item
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}

// previewSink 是 dry-run 交付：按规划时的目录快照预判“已存在”，其余交给 next（可选）。
type previewSink struct {
	st        domain.OutState
	overwrite bool
	next      export.Sink
}

func (s *previewSink) Deliver(ctx context.Context, name string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := s.st.ExistingNames[name]; ok && !s.overwrite {
		return fmt.Errorf("%s：%w", name, os.ErrExist)
	}
	if s.next == nil {
		return nil
	}
	return s.next.Deliver(ctx, name, payload)
}
