package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/John-Robertt/strmgen/internal/config"
	"github.com/John-Robertt/strmgen/internal/domain"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	// 隔离用户目录下的配置与 STRMGEN_* 环境变量。
	t.Setenv("HOME", t.TempDir())

	var out, errOut bytes.Buffer
	code := execute(context.Background(), args, streams{
		in:  strings.NewReader(stdin),
		out: &out,
		err: &errOut,
	})
	return cliResult{code: code, stdout: out.String(), stderr: errOut.String()}
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "links.txt")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

const sampleLinks = "Movie.Name.2023.mkv https://115.com/s/abc\n\nhttps://115.com/s/def\nplain text\n"

func TestCLI_Parse_NoTTY_StdoutOnlyJSON(t *testing.T) {
	in := writeInput(t, sampleLinks)

	res := runCLI(t, "", "parse", in, "--prefix", "/webdav")
	require.Equal(t, 0, res.code, "stderr=%s", res.stderr)

	var got parseOutput
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got), "stdout=%q", res.stdout)
	assert.Equal(t, domain.ReasonOK, got.Reason)
	assert.Equal(t, "已解析 2 个文件", got.Message)
	require.Len(t, got.Records, 2)
	assert.Equal(t, "Movie.Name.2023.strm", got.Records[0].Name)
	assert.Equal(t, "/webdav/https://115.com/s/abc", got.Records[0].Target)
	assert.Equal(t, "视频_2.strm", got.Records[1].Name)
	assert.Contains(t, res.stderr, "已解析 2 个文件")
}

func TestCLI_Parse_StdinReasons(t *testing.T) {
	res := runCLI(t, "   \n\n", "parse")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, `"reason": "empty_input"`)
	assert.Contains(t, res.stderr, "请输入 115 分享链接")

	res = runCLI(t, "no links here", "parse", "-")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, `"reason": "no_matches"`)
	assert.Contains(t, res.stderr, "未找到有效的视频链接")
}

func TestCLI_Parse_MissingFile(t *testing.T) {
	res := runCLI(t, "", "parse", filepath.Join(t.TempDir(), "nope.txt"))
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, `"error_code":"source_not_found"`)
}

func TestCLI_UsageErrors(t *testing.T) {
	assert.Equal(t, 2, runCLI(t, "", "parse", "a", "b").code)
	assert.Equal(t, 2, runCLI(t, "", "export", "--no-such-flag").code)
	assert.Equal(t, 2, runCLI(t, "", "nope").code)
	assert.Equal(t, 2, runCLI(t, "x", "parse", "--clipboard", "file.txt").code)
}

func TestCLI_Export_DryRun_NoWrites(t *testing.T) {
	in := writeInput(t, sampleLinks)
	out := filepath.Join(t.TempDir(), "strm")

	res := runCLI(t, "", "export", in, "--out", out)
	require.Equal(t, 0, res.code, "stderr=%s", res.stderr)

	var rr domain.ExportReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &rr), "stdout=%q", res.stdout)
	assert.True(t, rr.DryRun)
	assert.Equal(t, domain.ReportSummary{Planned: 2}, rr.Summary)
	assert.NotEmpty(t, rr.SessionID)

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "dry-run 不应创建输出目录")
	assert.Contains(t, res.stderr, "完成：written=0 planned=2")
}

func TestCLI_Export_Apply_WritesFilesAndReport(t *testing.T) {
	in := writeInput(t, sampleLinks)
	out := filepath.Join(t.TempDir(), "strm")

	res := runCLI(t, "", "export", in, "--out", out, "--apply", "--immediate", "--prefix", "http://nas:5244/d")
	require.Equal(t, 0, res.code, "stderr=%s", res.stderr)

	b, err := os.ReadFile(filepath.Join(out, "Movie.Name.2023.strm"))
	require.NoError(t, err)
	assert.Equal(t, "http://nas:5244/d/https://115.com/s/abc", string(b))

	b, err = os.ReadFile(filepath.Join(out, "视频_2.strm"))
	require.NoError(t, err)
	assert.Equal(t, "http://nas:5244/d/https://115.com/s/def", string(b))

	rb, err := os.ReadFile(filepath.Join(out, ".strmgen", "report.json"))
	require.NoError(t, err)
	var rr domain.ExportReport
	require.NoError(t, json.Unmarshal(rb, &rr))
	assert.Equal(t, domain.ReportSummary{Written: 2}, rr.Summary)

	// 再跑一次：已存在的文件被跳过，仍然算成功。
	res = runCLI(t, "", "export", in, "--out", out, "--apply", "--immediate")
	require.Equal(t, 0, res.code, "stderr=%s", res.stderr)
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &rr))
	assert.Equal(t, domain.ReportSummary{Skipped: 2}, rr.Summary)

	// ls 回读。
	res = runCLI(t, "", "ls", out)
	require.Equal(t, 0, res.code, "stderr=%s", res.stderr)
	var files []domain.PointerFile
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &files))
	require.Len(t, files, 2)
	assert.Equal(t, "Movie.Name.2023.strm", files[0].RelPath)
}

func TestCLI_Export_YAMLReport(t *testing.T) {
	out := filepath.Join(t.TempDir(), "strm")

	res := runCLI(t, "a.mp4 https://h/a\n", "export", "--out", out, "--apply", "--immediate", "--report", "yaml")
	require.Equal(t, 0, res.code, "stderr=%s", res.stderr)

	b, err := os.ReadFile(filepath.Join(out, ".strmgen", "report.yaml"))
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, yaml.Unmarshal(b, &got))
	assert.Equal(t, false, got["dry_run"])
}

func TestCLI_Export_NoMatchesExitsOne(t *testing.T) {
	out := filepath.Join(t.TempDir(), "strm")
	res := runCLI(t, "nothing\n", "export", "--out", out, "--apply")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "未找到有效的视频链接")
	_, err := os.Stat(filepath.Join(out, ".strmgen"))
	assert.True(t, os.IsNotExist(err), "无记录时不应写 report")
}

func TestCLI_Export_ConfigError(t *testing.T) {
	res := runCLI(t, "a.mp4 https://h/a", "export", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 1, res.code)

	var rr domain.ExportReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &rr), "stdout=%q", res.stdout)
	require.Len(t, rr.Items, 1)
	assert.Equal(t, config.ErrCodeNotFound, rr.Items[0].ErrorCode)
}

func TestCLI_Export_ConfigFileSuppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "from-config")
	cfg := filepath.Join(dir, "strmgen.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("out: "+out+"\nprefix: /cfg\napply: true\nimmediate: true\n"), 0o644))

	res := runCLI(t, "https://h/a\n", "export", "--config", cfg)
	require.Equal(t, 0, res.code, "stderr=%s", res.stderr)

	b, err := os.ReadFile(filepath.Join(out, "视频_1.strm"))
	require.NoError(t, err)
	assert.Equal(t, "/cfg/https://h/a", string(b))

	// --apply=false 覆盖配置里的 apply: true。
	res = runCLI(t, "https://h/b\n", "export", "--config", cfg, "--apply=false")
	require.Equal(t, 0, res.code, "stderr=%s", res.stderr)
	_, err = os.Stat(filepath.Join(out, "视频_1.strm"))
	require.NoError(t, err)
	assert.Contains(t, res.stdout, `"dry_run":true`)
}

func TestCLI_UI_UsesConfig(t *testing.T) {
	old := runTUI
	t.Cleanup(func() { runTUI = old })

	var got config.EffectiveConfig
	runTUI = func(ctx context.Context, eff config.EffectiveConfig) error {
		got = eff
		return nil
	}

	out := filepath.Join(t.TempDir(), "dl")
	res := runCLI(t, "", "ui", "--out", out, "--prefix", "/p")
	require.Equal(t, 0, res.code, "stderr=%s", res.stderr)
	assert.Equal(t, out, got.Out)
	assert.Equal(t, "/p", got.Prefix)
}
