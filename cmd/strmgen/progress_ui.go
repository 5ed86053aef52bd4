package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/strmgen/internal/app/run"
	"github.com/John-Robertt/strmgen/internal/config"
	"github.com/John-Robertt/strmgen/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出。
//
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：间隔较大时长时间没有条目完成，也会定期输出一行
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time
	apply       bool

	total   int
	done    int
	written int
	fail    int
	skip    int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.startedAt.IsZero() {
		p.startedAt = now
	}
	p.apply = eff.Apply

	mode := "dry-run"
	modeHint := " (不写入)"
	if eff.Apply {
		mode = "apply"
		modeHint = ""
	}

	fmt.Fprintf(p.w, "[%s] strmgen export (%s)\n", now.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	if eff.ConfigFile != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigFile)
	}
	fmt.Fprintf(p.w, "  out: %s\n", eff.Out)
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
	fmt.Fprintf(p.w, "  prefix: %s\n", formatPrefix(eff.Prefix))
	fmt.Fprintf(p.w, "  interval: %s\n", formatInterval(eff))
	fmt.Fprintf(p.w, "  concurrency: %d\n", eff.Concurrency)
	fmt.Fprintf(p.w, "  overwrite: %s\n", onOff(eff.Overwrite))
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "parse":
		n := intField(fields, "records")
		reason, _ := fields["reason"].(string)
		fmt.Fprintf(p.w, "解析: %s (%s)\n", domain.Reason(reason).Message(n), formatShortDuration(dur))
	case "plan":
		fmt.Fprintf(p.w, "规划: files=%d existing=%d renamed=%d (%s)\n",
			intField(fields, "files"), intField(fields, "existing"), intField(fields, "renamed"), formatShortDuration(dur),
		)
	case "export":
		p.total = intField(fields, "total")
		fmt.Fprintf(p.w, "导出: total=%d concurrency=%d\n\n", p.total, intField(fields, "concurrency"))
		if p.apply && p.total > 0 && !p.tickerStarted {
			p.startTickerLocked()
		}
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnItemDone(done, total int, res domain.ItemResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = done
	p.total = total

	switch res.Status {
	case domain.StatusWritten:
		p.written++
		fmt.Fprintf(p.w, "[%d/%d] 已下载 %s\n", done, total, res.File)
	case domain.StatusPlanned:
		// dry-run 的预览行已经输出到 stdout，这里不重复。
	case domain.StatusSkipped:
		p.skip++
		fmt.Fprintf(p.w, "[%d/%d] %s SKIP %s\n", done, total, res.File, res.ErrorCode)
	default:
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] %s FAIL %s: %s\n", done, total, res.File, res.ErrorCode, truncate(res.ErrorMsg, 160))
	}

	p.lastPrinted = time.Now()

	// 最后一条完成：停止 ticker，避免在结束打印后又冒出 keepalive。
	if p.tickerStarted && p.done >= p.total {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}
	stop := p.stopCh

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && p.done >= p.total {
					p.mu.Unlock()
					return
				}
				if time.Since(p.lastPrinted) > threshold {
					fmt.Fprintf(p.w, "进度: done=%d/%d written=%d skip=%d fail=%d elapsed=%s\n",
						p.done, p.total, p.written, p.skip, p.fail, formatElapsed(time.Since(p.startedAt)),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatPrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "(无)"
	}
	return truncate(prefix, 120)
}

func formatInterval(eff config.EffectiveConfig) string {
	if eff.Immediate || eff.Interval <= 0 {
		return "immediate"
	}
	return eff.Interval.String()
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
