package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/strmgen/internal/app/run"
	"github.com/John-Robertt/strmgen/internal/config"
	"github.com/John-Robertt/strmgen/internal/domain"
	"github.com/John-Robertt/strmgen/internal/session"
	"github.com/John-Robertt/strmgen/internal/source"
)

func newExportCmd(s streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file|-]",
		Short: "生成 .strm 文件（默认 dry-run，--apply 才写入）",
		Long: `export 解析输入并把每条记录写成 <out>/<name>.strm。

批量写入按记录顺序逐条调度，相邻两条间隔 --interval（默认 200ms）；
--immediate 取消间隔，只受 concurrency 限制。已存在的同名文件默认跳过，--overwrite 覆盖。
--apply 时额外写入 <out>/.strmgen/report.json（或 --report yaml）。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, s, args)
		},
	}
	inputFlags(cmd)
	cmd.Flags().String("out", config.DefaultOut, "输出目录")
	cmd.Flags().Duration("interval", config.DefaultInterval, "批量写入时相邻两条的间隔")
	cmd.Flags().Bool("immediate", false, "不做间隔，立即并发写入")
	cmd.Flags().Bool("overwrite", false, "覆盖已存在的同名 .strm")
	cmd.Flags().Bool("apply", false, "真正写入文件（默认 dry-run）；支持 --apply=false 覆盖配置")
	cmd.Flags().String("report", config.DefaultReportFormat, "report 格式：json|yaml")
	return cmd
}

func runExport(cmd *cobra.Command, s streams, args []string) error {
	clip, _ := cmd.Flags().GetBool("clipboard")

	eff, err := loadConfig(cmd)
	if err != nil {
		emitReport(s, reportForError(cmd, config.Code(err), err))
		return exitCode(1)
	}

	text, err := readInput(s, args, clip)
	if err != nil {
		if isUsageError(err) {
			return err
		}
		rr := reportForError(cmd, source.Code(err), err)
		rr.OutDir = eff.Out
		rr.DryRun = !eff.Apply
		emitReport(s, rr)
		return exitCode(1)
	}

	sess := session.New()
	progressW, interactive := pickProgressWriter(s)
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	in := run.Input{SessionID: sess.ID, Text: text}
	if !eff.Apply && isTTY(s.out) {
		in.Preview = s.out
	}

	rr := run.ExecuteWithObserver(cmd.Context(), eff, in, obs)

	// apply：写入 <out>/.strmgen/report.*；dry-run 禁止落盘。
	if eff.Apply && len(rr.Items) > 0 {
		path, err := run.WriteReport(rr, eff.ReportFormat)
		if err != nil {
			fmt.Fprintf(s.err, "写入 report 失败：%v\n", err)
			emitReport(s, rr)
			return exitCode(1)
		}
		if interactive {
			fmt.Fprintf(progressW, "report: %s\n", path)
		}
	}

	emitReport(s, rr)
	if interactive {
		fmt.Fprintf(progressW, "out: %s\n", eff.Out)
	}
	if rr.OK() {
		return nil
	}
	return exitCode(1)
}

func emitReport(s streams, rr domain.ExportReport) {
	summary := fmt.Sprintf("完成：written=%d planned=%d skipped=%d failed=%d",
		rr.Summary.Written, rr.Summary.Planned, rr.Summary.Skipped, rr.Summary.Failed,
	)

	if isTTY(s.out) {
		if rr.Reason != "" && rr.Reason != domain.ReasonOK {
			fmt.Fprintln(s.err, rr.Reason.Message(0))
		}
		fmt.Fprintln(s.out, summary)
		for _, it := range rr.Items {
			if it.Status != domain.StatusFailed {
				continue
			}
			key := it.File
			if key == "" {
				key = "<run>"
			}
			fmt.Fprintf(s.err, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 ExportReport JSON（提示/摘要走 stderr）。
	enc := json.NewEncoder(s.out)
	_ = enc.Encode(rr)
	if rr.Reason != "" && rr.Reason != domain.ReasonOK {
		fmt.Fprintln(s.err, rr.Reason.Message(0))
	}
	fmt.Fprintln(s.err, summary)
}

// reportForError 为“还没进入 run 就失败”的情况（配置/输入错误）合成一份 report。
func reportForError(cmd *cobra.Command, code string, err error) domain.ExportReport {
	now := time.Now().UTC()
	apply, _ := cmd.Flags().GetBool("apply")
	out, _ := cmd.Flags().GetString("out")
	if abs, e := filepath.Abs(out); e == nil {
		out = abs
	}
	rr := domain.ExportReport{
		OutDir:     out,
		DryRun:     !(cmd.Flags().Changed("apply") && apply),
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: code,
			ErrorMsg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}
