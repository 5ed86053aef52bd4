// Package export 把 PointerRecord 打包成 .strm 载荷并交付给 Sink。
//
// 批量导出按记录顺序为每条记录单独调度一次交付，第 i 条的起始偏移由 Policy 决定；
// 单条交付失败不会中止其它交付。
package export

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/strmgen/internal/domain"
	"github.com/John-Robertt/strmgen/internal/infra/fsx"
)

// DefaultLimit 是同时进行中的交付数上限（当 Exporter.Limit 未设置时）。
const DefaultLimit = 4

// Sink 是交付目标（目录、stdout……）。实现必须并发安全。
type Sink interface {
	Deliver(ctx context.Context, name string, payload []byte) error
}

// Locker 是可选能力：Sink 需要在整批交付期间持有独占资源时实现它。
type Locker interface {
	Lock() (unlock func() error, err error)
}

// Result 是一次交付的结果。
type Result struct {
	Index  int
	Record domain.PointerRecord
	File   string
	Offset time.Duration
	Err    error
}

// Status 把交付错误归类为 report 的 status + error_code。
func (r Result) Status() (status, code string) {
	return Classify(r.Err)
}

// Exporter 负责单条与批量导出。零值不可用：Sink 必须设置。
type Exporter struct {
	Sink   Sink
	Policy Policy
	Limit  int

	// Notify 在每次交付完成后调用（“已下载 xxx”提示）；可能来自多个 goroutine。
	Notify func(Result)
}

// 通过可替换的函数指针，让测试不必真实等待。
var sleepFunc = sleepCtx

// Payload 返回 .strm 文件内容：恰好是 target 本身（无头部、无转义、无结尾换行）。
func Payload(rec domain.PointerRecord) []byte {
	return []byte(rec.Target)
}

// ExportOne 同步导出一条记录，文件名即记录名称。
func (e *Exporter) ExportOne(ctx context.Context, rec domain.PointerRecord) Result {
	return e.ExportOneAs(ctx, rec, rec.Name)
}

// ExportOneAs 同步导出一条记录，落盘文件名为 file（通常是规划后的安全文件名）。
func (e *Exporter) ExportOneAs(ctx context.Context, rec domain.PointerRecord, file string) Result {
	res := Result{Record: rec, File: file}
	res.Err = e.Sink.Deliver(ctx, res.File, Payload(rec))
	e.notify(res)
	return res
}

// ExportAll 批量导出 records，文件名即记录名称。
func (e *Exporter) ExportAll(ctx context.Context, records []domain.PointerRecord) ([]Result, error) {
	plans := make([]domain.FilePlan, 0, len(records))
	for _, r := range records {
		plans = append(plans, domain.FilePlan{Record: r, File: r.Name})
	}
	return e.ExportPlans(ctx, plans)
}

// ExportPlans 按规划的文件名批量导出。
//
// - 第 i 条在 start + Policy.Offset(i) 之后交付；各条彼此独立，失败不影响其它条目
// - 返回的 results 与 plans 顺序一致
// - error 只表示整批无法开始（例如输出目录被其它进程锁定）
func (e *Exporter) ExportPlans(ctx context.Context, plans []domain.FilePlan) ([]Result, error) {
	if l, ok := e.Sink.(Locker); ok && len(plans) > 0 {
		unlock, err := l.Lock()
		if err != nil {
			return nil, err
		}
		defer func() { _ = unlock() }()
	}

	policy := e.Policy
	if policy == nil {
		policy = Interval{Step: DefaultInterval}
	}
	limit := e.Limit
	if limit < 1 {
		limit = DefaultLimit
	}

	results := make([]Result, len(plans))
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(limit)
	for i := range plans {
		off := policy.Offset(i)
		results[i] = Result{Index: i, Record: plans[i].Record, File: plans[i].File, Offset: off}

		g.Go(func() error {
			res := &results[i]
			if err := sleepFunc(ctx, time.Until(start.Add(off))); err != nil {
				res.Err = err
				e.notify(*res)
				return nil
			}
			res.Err = e.Sink.Deliver(ctx, res.File, Payload(res.Record))
			e.notify(*res)
			// 单条失败不传播：其它交付已独立调度。
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (e *Exporter) notify(r Result) {
	if e.Notify != nil {
		e.Notify(r)
	}
}

// Classify 把交付错误映射为 report 的 status 与 error_code。
func Classify(err error) (status, code string) {
	switch {
	case err == nil:
		return domain.StatusWritten, ""
	case errors.Is(err, os.ErrExist):
		return domain.StatusSkipped, domain.ErrCodeExists
	case fsx.IsPathTypeConflict(err):
		return domain.StatusFailed, domain.ErrCodeTargetConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.StatusFailed, domain.ErrCodeCanceled
	default:
		return domain.StatusFailed, domain.ErrCodeIOFailed
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
