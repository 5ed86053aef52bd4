// Package tui 是交互式终端界面：粘贴链接、填写前缀、解析、逐个或批量导出 .strm。
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/John-Robertt/strmgen/internal/app/planner"
	"github.com/John-Robertt/strmgen/internal/app/run"
	"github.com/John-Robertt/strmgen/internal/config"
	"github.com/John-Robertt/strmgen/internal/domain"
	"github.com/John-Robertt/strmgen/internal/export"
	"github.com/John-Robertt/strmgen/internal/infra/fsx"
	"github.com/John-Robertt/strmgen/internal/session"
)

// 通过可替换的函数指针，让测试不依赖真实剪贴板。
var clipboardWriteAll = clipboard.WriteAll

type focus int

const (
	focusLinks focus = iota
	focusPrefix
	focusList
)

type level int

const (
	levelInfo level = iota
	levelSuccess
	levelWarning
	levelError
)

// maxLog 是界面上保留的最近交付提示条数。
const maxLog = 8

type (
	// itemDoneMsg 是一次交付完成（单条或批量中的一条）。
	itemDoneMsg struct {
		res domain.ItemResult
		ch  <-chan tea.Msg
	}

	// bulkDoneMsg 是一次批量导出结束。
	bulkDoneMsg struct {
		report     domain.ExportReport
		reportPath string
		err        error
	}
)

type logEntry struct {
	text  string
	level level
}

// Model 是 bubbletea 模型。
type Model struct {
	ctx  context.Context
	eff  config.EffectiveConfig
	sess *session.Session

	links  textarea.Model
	prefix textinput.Model
	spin   spinner.Model

	focus  focus
	cursor int

	status      string
	statusLevel level
	logs        []logEntry

	// busy 是进行中的批量导出数量。
	busy int

	width  int
	height int
}

// New 创建模型。ctx 结束时进行中的导出会被取消。
func New(ctx context.Context, eff config.EffectiveConfig, sess *session.Session) Model {
	ta := textarea.New()
	ta.Placeholder = "每行一个分享链接，可带文件名，例如：\nmovie.mkv https://115.com/s/xxxx"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.SetWidth(80)
	ta.SetHeight(8)
	ta.Focus()

	ti := textinput.New()
	ti.Placeholder = "可选，例如 /webdav 或 http://nas:5244/d"
	ti.CharLimit = 500
	ti.Width = 60
	ti.SetValue(eff.Prefix)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = cursorStyle

	if sess == nil {
		sess = session.New()
	}

	return Model{
		ctx:    ctx,
		eff:    eff,
		sess:   sess,
		links:  ta,
		prefix: ti,
		spin:   sp,
	}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w := msg.Width - 4
		if w > 120 {
			w = 120
		}
		if w < 20 {
			w = 20
		}
		m.links.SetWidth(w)
		m.prefix.Width = w - 4
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case spinner.TickMsg:
		if m.busy == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case itemDoneMsg:
		m.addItemLog(msg.res)
		if msg.ch != nil {
			return m, waitFor(msg.ch)
		}
		return m, nil

	case bulkDoneMsg:
		m.busy--
		if msg.err != nil {
			m.setStatus(levelError, fmt.Sprintf("批量导出失败：%v", msg.err))
			return m, nil
		}
		s := msg.report.Summary
		text := fmt.Sprintf("批量导出完成：写入 %d，跳过 %d，失败 %d", s.Written, s.Skipped, s.Failed)
		if msg.reportPath != "" {
			text += "（report: " + msg.reportPath + "）"
		}
		lv := levelSuccess
		if s.Failed > 0 {
			lv = levelWarning
		}
		m.setStatus(lv, text)
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusLinks:
		m.links, cmd = m.links.Update(msg)
	case focusPrefix:
		m.prefix, cmd = m.prefix.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return tea.Quit, true

	case "tab":
		return m.cycleFocus(1), true
	case "shift+tab":
		return m.cycleFocus(-1), true

	case "ctrl+r":
		m.parse()
		return nil, true

	case "ctrl+l":
		m.clear()
		return m.setFocus(focusLinks), true

	case "ctrl+a":
		return m.exportAll(), true

	case "ctrl+d":
		return m.exportSelected(), true

	case "ctrl+y":
		m.copySelected()
		return nil, true
	}

	if m.focus != focusList {
		return nil, false
	}
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.sess.Records)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		if n := len(m.sess.Records); n > 0 {
			m.cursor = n - 1
		}
	case "enter", "d":
		return m.exportSelected(), true
	case "y", "c":
		m.copySelected()
	}
	return nil, true
}

func (m *Model) cycleFocus(delta int) tea.Cmd {
	next := (int(m.focus) + delta + 3) % 3
	return m.setFocus(focus(next))
}

func (m *Model) setFocus(f focus) tea.Cmd {
	m.focus = f
	m.links.Blur()
	m.prefix.Blur()
	switch f {
	case focusLinks:
		return m.links.Focus()
	case focusPrefix:
		return m.prefix.Focus()
	}
	return nil
}

func (m *Model) parse() {
	msg := m.sess.Parse(m.links.Value(), m.prefix.Value())
	m.cursor = 0
	switch m.sess.Reason {
	case domain.ReasonOK:
		m.setStatus(levelSuccess, msg)
	default:
		m.setStatus(levelWarning, msg)
	}
}

func (m *Model) clear() {
	m.sess.Clear()
	m.links.Reset()
	m.prefix.SetValue("")
	m.cursor = 0
	m.logs = nil
	m.status = ""
}

func (m *Model) selected() (domain.PointerRecord, bool) {
	if m.cursor < 0 || m.cursor >= len(m.sess.Records) {
		return domain.PointerRecord{}, false
	}
	return m.sess.Records[m.cursor], true
}

func (m *Model) copySelected() {
	rec, ok := m.selected()
	if !ok {
		m.setStatus(levelWarning, "没有可复制的记录")
		return
	}
	if err := clipboardWriteAll(rec.Target); err != nil {
		m.setStatus(levelError, fmt.Sprintf("复制失败：%v", err))
		return
	}
	m.setStatus(levelInfo, "已复制 "+rec.Target)
}

// exportSelected 同步导出当前选中的一条；文件名与批量导出一样经过安全化。
func (m *Model) exportSelected() tea.Cmd {
	rec, ok := m.selected()
	if !ok {
		m.setStatus(levelWarning, m.emptyHint())
		return nil
	}
	ctx, eff := m.ctx, m.eff
	return func() tea.Msg {
		file := planner.SafeFileName(rec.Name)
		item := domain.ItemResult{Line: rec.Line, Name: rec.Name, File: file, Target: rec.Target}
		if err := fsx.EnsureDir(eff.Out); err != nil {
			item.Status, item.ErrorCode = export.Classify(err)
			item.ErrorMsg = err.Error()
			return itemDoneMsg{res: item}
		}
		exp := export.Exporter{Sink: &export.DirSink{Dir: eff.Out, Overwrite: eff.Overwrite}}
		r := exp.ExportOneAs(ctx, rec, file)
		item.Status, item.ErrorCode = r.Status()
		if r.Err != nil {
			item.ErrorMsg = r.Err.Error()
		}
		return itemDoneMsg{res: item}
	}
}

// exportAll 在后台执行一次 apply 导出（基于当前会话的输入快照）。
// 之后的重新解析或清空不会取消它。
func (m *Model) exportAll() tea.Cmd {
	if len(m.sess.Records) == 0 {
		m.setStatus(levelWarning, m.emptyHint())
		return nil
	}

	eff := m.eff
	eff.Apply = true
	eff.Prefix = m.sess.Prefix
	in := run.Input{SessionID: m.sess.ID, Text: m.sess.Input}
	total := len(m.sess.Records)

	// 缓冲足够大：后台 goroutine 永不阻塞在发送上。
	ch := make(chan tea.Msg, total+1)
	obs := &chanObserver{ch: ch}
	ctx := m.ctx

	go func() {
		rr := run.ExecuteWithObserver(ctx, eff, in, obs)
		done := bulkDoneMsg{report: rr}
		if len(rr.Items) > 0 {
			done.reportPath, done.err = run.WriteReport(rr, eff.ReportFormat)
		}
		ch <- done
		close(ch)
	}()

	m.busy++
	m.setStatus(levelInfo, fmt.Sprintf("开始批量导出 %d 个文件（间隔 %s）", total, intervalText(eff)))
	return tea.Batch(waitFor(ch), m.spin.Tick)
}

func (m *Model) emptyHint() string {
	if m.sess.Reason == "" {
		return "请先解析（ctrl+r）"
	}
	return m.sess.Reason.Message(len(m.sess.Records))
}

func (m *Model) addItemLog(res domain.ItemResult) {
	var e logEntry
	switch res.Status {
	case domain.StatusWritten:
		e = logEntry{text: "已下载 " + res.File, level: levelSuccess}
	case domain.StatusSkipped:
		e = logEntry{text: "已存在，跳过 " + res.File, level: levelWarning}
	default:
		e = logEntry{text: fmt.Sprintf("失败 %s：%s", res.File, res.ErrorMsg), level: levelError}
	}
	m.logs = append(m.logs, e)
	if len(m.logs) > maxLog {
		m.logs = m.logs[len(m.logs)-maxLog:]
	}
}

func (m *Model) setStatus(lv level, text string) {
	m.status = text
	m.statusLevel = lv
}

func waitFor(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func intervalText(eff config.EffectiveConfig) string {
	if eff.Immediate || eff.Interval <= 0 {
		return "无"
	}
	return eff.Interval.String()
}

// chanObserver 把 run 的条目事件转成 tea.Msg。
type chanObserver struct {
	ch chan tea.Msg
}

var _ run.Observer = (*chanObserver)(nil)

func (o *chanObserver) OnStart(config.EffectiveConfig) {}

func (o *chanObserver) OnPhaseDone(string, map[string]any, time.Duration) {}

func (o *chanObserver) OnItemDone(done, total int, res domain.ItemResult) {
	o.ch <- itemDoneMsg{res: res, ch: o.ch}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("STRM 生成器"))
	b.WriteString("\n")

	b.WriteString(m.label(focusLinks, "分享链接"))
	b.WriteString("\n")
	b.WriteString(m.links.View())
	b.WriteString("\n\n")

	b.WriteString(m.label(focusPrefix, "路径前缀"))
	b.WriteString("\n")
	b.WriteString(m.prefix.View())
	b.WriteString("\n\n")

	b.WriteString(m.label(focusList, fmt.Sprintf("解析结果（%d）", len(m.sess.Records))))
	b.WriteString("\n")
	b.WriteString(m.viewRecords())
	b.WriteString("\n")

	if m.status != "" {
		if m.busy > 0 {
			b.WriteString(m.spin.View())
			b.WriteString(" ")
		}
		b.WriteString(styleFor(m.statusLevel).Render(m.status))
		b.WriteString("\n")
	}
	for _, e := range m.logs {
		b.WriteString(styleFor(e.level).Render("• " + e.text))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("输出目录：%s", m.eff.Out)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("ctrl+r 解析 • ctrl+d 下载选中 • ctrl+a 全部下载 • ctrl+y 复制目标 • ctrl+l 清空 • tab 切换 • esc 退出"))
	return b.String()
}

func (m Model) label(f focus, text string) string {
	if m.focus == f {
		return focusLabelStyle.Render("▸ " + text)
	}
	return labelStyle.Render("  " + text)
}

// maxRows 是结果列表一次显示的行数。
const maxRows = 10

func (m Model) viewRecords() string {
	recs := m.sess.Records
	if len(recs) == 0 {
		return boxStyle.Render(dimStyle.Render("（空）"))
	}

	start := 0
	if m.cursor >= maxRows {
		start = m.cursor - maxRows + 1
	}
	end := start + maxRows
	if end > len(recs) {
		end = len(recs)
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		line := fmt.Sprintf("%s  %s", recs[i].Name, dimStyle.Render(recs[i].Target))
		if i == m.cursor && m.focus == focusList {
			line = cursorStyle.Render("> ") + selectedStyle.Render(line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func styleFor(lv level) lipgloss.Style {
	switch lv {
	case levelSuccess:
		return successStyle
	case levelWarning:
		return warningStyle
	case levelError:
		return errorStyle
	default:
		return labelStyle
	}
}
