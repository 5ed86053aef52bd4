package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/strmgen/internal/config"
	"github.com/John-Robertt/strmgen/internal/domain"
	"github.com/John-Robertt/strmgen/internal/linkparse"
	"github.com/John-Robertt/strmgen/internal/source"
)

// parseOutput 是 parse 在非 TTY 下输出到 stdout 的唯一 JSON 文档。
type parseOutput struct {
	Reason    domain.Reason          `json:"reason"`
	Message   string                 `json:"message"`
	Records   []domain.PointerRecord `json:"records"`
	ErrorCode string                 `json:"error_code,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
}

func newParseCmd(s streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "解析输入并列出将要生成的 .strm（不写入）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clip, _ := cmd.Flags().GetBool("clipboard")

			eff, err := loadConfig(cmd)
			if err != nil {
				emitParseError(s, config.Code(err), err)
				return exitCode(1)
			}
			text, err := readInput(s, args, clip)
			if err != nil {
				if isUsageError(err) {
					return err
				}
				emitParseError(s, source.Code(err), err)
				return exitCode(1)
			}

			records, reason := linkparse.Parse(text, eff.Prefix)
			emitParse(s, records, reason)
			if reason != domain.ReasonOK {
				return exitCode(1)
			}
			return nil
		},
	}
	inputFlags(cmd)
	return cmd
}

func emitParse(s streams, records []domain.PointerRecord, reason domain.Reason) {
	msg := reason.Message(len(records))

	if isTTY(s.out) {
		for _, r := range records {
			fmt.Fprintf(s.out, "%3d  %s  ->  %s\n", r.Line, r.Name, r.Target)
		}
		fmt.Fprintln(s.err, msg)
		return
	}

	if records == nil {
		records = []domain.PointerRecord{}
	}
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(parseOutput{Reason: reason, Message: msg, Records: records})
	fmt.Fprintln(s.err, msg)
}

func emitParseError(s streams, code string, err error) {
	if isTTY(s.out) {
		fmt.Fprintln(s.err, err)
		return
	}
	_ = json.NewEncoder(s.out).Encode(parseOutput{
		Records:   []domain.PointerRecord{},
		ErrorCode: code,
		ErrorMsg:  err.Error(),
	})
	fmt.Fprintln(s.err, err)
}
