package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/strmgen/internal/config"
	"github.com/John-Robertt/strmgen/internal/domain"
	"github.com/John-Robertt/strmgen/internal/scan"
)

func newLsCmd(s streams) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [dir]",
		Short: "列出目录中的 .strm 及其目标（默认为配置中的 out）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			} else {
				eff, err := loadConfig(cmd)
				if err != nil {
					fmt.Fprintln(s.err, err)
					return exitCode(1)
				}
				dir = eff.Out
			}

			files, err := scan.ScanPointers(dir)
			if err != nil {
				fmt.Fprintf(s.err, "扫描失败：%v\n", err)
				return exitCode(1)
			}

			if isTTY(s.out) {
				for _, f := range files {
					fmt.Fprintf(s.out, "%s\t%s\n", f.RelPath, f.Target)
				}
				fmt.Fprintf(s.err, "共 %d 个 .strm\n", len(files))
				return nil
			}
			if files == nil {
				files = []domain.PointerFile{}
			}
			return json.NewEncoder(s.out).Encode(files)
		},
	}
}

func newUICmd(s streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "打开交互式界面（粘贴、解析、逐个或全部下载）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := loadConfig(cmd)
			if err != nil {
				fmt.Fprintln(s.err, err)
				return exitCode(1)
			}
			if err := runTUI(cmd.Context(), eff); err != nil {
				fmt.Fprintf(s.err, "界面异常退出：%v\n", err)
				return exitCode(1)
			}
			return nil
		},
	}
	cmd.Flags().String("prefix", "", "初始路径前缀")
	cmd.Flags().String("out", config.DefaultOut, "下载目录")
	cmd.Flags().Duration("interval", config.DefaultInterval, "全部下载时相邻两条的间隔")
	cmd.Flags().Bool("immediate", false, "全部下载时不做间隔")
	cmd.Flags().Bool("overwrite", false, "覆盖已存在的同名 .strm")
	return cmd
}
