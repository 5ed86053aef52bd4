package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version 在构建时通过 ldflags 注入。
var version = "dev"

// exitError 让子命令携带退出码返回（而不是在 RunE 里直接 os.Exit）。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

func exitCode(code int) error {
	if code == 0 {
		return nil
	}
	return &exitError{code: code}
}

// streams 是命令的输入输出；测试中替换为内存 buffer。
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], streams{in: os.Stdin, out: os.Stdout, err: os.Stderr})
	stop()
	os.Exit(code)
}

// execute 运行命令并返回进程退出码：0 成功；1 空输入/无匹配/存在失败条目/配置错误；2 参数错误。
func execute(ctx context.Context, args []string, s streams) int {
	root := newRootCmd(s)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(s.err, "参数错误：%v\n\n", err)
	fmt.Fprint(s.err, root.UsageString())
	return 2
}

func newRootCmd(s streams) *cobra.Command {
	root := &cobra.Command{
		Use:   "strmgen",
		Short: "把分享链接转换为 .strm 文件",
		Long: `strmgen 从粘贴的文本中提取视频链接与文件名，生成 Plex / Emby / Jellyfin / Kodi
可识别的 .strm 文件（内容即视频地址，可带路径前缀）。

输入可以是文件、stdin（"-" 或管道）、系统剪贴板（--clipboard）或保存的网页（.html）。`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(s.in)
	root.SetOut(s.out)
	root.SetErr(s.err)

	root.PersistentFlags().String("config", "", "配置文件（默认查找 ./strmgen.yaml 或 ~/.config/strmgen/strmgen.yaml）")

	root.AddCommand(
		newParseCmd(s),
		newExportCmd(s),
		newLsCmd(s),
		newUICmd(s),
	)
	return root
}

func isTTY(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter(s streams) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(s.err) {
		return s.err, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(s.out) {
		return s.out, true
	}
	return nil, false
}
