package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/strmgen/internal/config"
	"github.com/John-Robertt/strmgen/internal/source"
)

var (
	// errNoInput 表示既没有文件参数、也没有管道输入或 --clipboard。
	errNoInput = errors.New("缺少输入：请指定文件、\"-\"（stdin）或 --clipboard")
	// errInputConflict 表示同时给了 --clipboard 与文件参数。
	errInputConflict = errors.New("--clipboard 与文件参数不能同时使用")
)

// isUsageError 区分参数用法错误（退出码 2）与读取失败（退出码 1）。
func isUsageError(err error) bool {
	return errors.Is(err, errNoInput) || errors.Is(err, errInputConflict)
}

// readInput 按 [file] / "-" / 管道 stdin / --clipboard 读取输入文本。
func readInput(s streams, args []string, fromClipboard bool) (string, error) {
	switch {
	case fromClipboard && len(args) > 0:
		return "", errInputConflict
	case fromClipboard:
		return source.FromClipboard()
	case len(args) == 1 && args[0] != "-":
		return source.FromFile(args[0])
	case len(args) == 1:
		return source.FromReader(s.in)
	}

	// 无参数：stdin 是终端时没有可读内容。
	if isTTY(s.in) {
		return "", errNoInput
	}
	return source.FromReader(s.in)
}

// inputFlags 是 parse/export 共享的输入参数。
func inputFlags(cmd *cobra.Command) {
	cmd.Flags().String("prefix", "", "路径前缀，生成的目标为 <prefix>/<url>")
	cmd.Flags().Bool("clipboard", false, "从系统剪贴板读取输入")
}

// loadConfig 把命令行中显式指定的参数交给 config 合并。
func loadConfig(cmd *cobra.Command) (config.EffectiveConfig, error) {
	var cli config.CLIArgs
	f := cmd.Flags()

	cli.ConfigFile, _ = f.GetString("config")
	if f.Lookup("prefix") != nil {
		cli.Prefix, _ = f.GetString("prefix")
		cli.PrefixSet = f.Changed("prefix")
	}
	if f.Lookup("out") != nil {
		cli.Out, _ = f.GetString("out")
		cli.OutSet = f.Changed("out")
	}
	if f.Lookup("interval") != nil {
		cli.Interval, _ = f.GetDuration("interval")
		cli.IntervalSet = f.Changed("interval")
	}
	if f.Lookup("immediate") != nil {
		cli.Immediate, _ = f.GetBool("immediate")
		cli.ImmediateSet = f.Changed("immediate")
	}
	if f.Lookup("overwrite") != nil {
		cli.Overwrite, _ = f.GetBool("overwrite")
		cli.OverwriteSet = f.Changed("overwrite")
	}
	if f.Lookup("apply") != nil {
		cli.Apply, _ = f.GetBool("apply")
		cli.ApplySet = f.Changed("apply")
	}
	if f.Lookup("report") != nil {
		cli.ReportFormat, _ = f.GetString("report")
		cli.ReportFormatSet = f.Changed("report")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, &config.Error{Code: config.ErrCodeInvalid, Err: err}
	}
	return config.LoadEffective(cwd, cli)
}
