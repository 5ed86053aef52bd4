package run

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/John-Robertt/strmgen/internal/domain"
	"github.com/John-Robertt/strmgen/internal/infra/fsx"
)

// ReportDir 是 report 在输出目录中的子目录（以 '.' 开头，媒体库与 ls 都会跳过）。
const ReportDir = ".strmgen"

// ReportPath 返回 report 文件路径：<out>/.strmgen/report.<format>。
func ReportPath(outDir, format string) string {
	return filepath.Join(outDir, ReportDir, "report."+format)
}

// EncodeReport 按 format（json|yaml）编码 report。
func EncodeReport(rr domain.ExportReport, format string) ([]byte, error) {
	switch format {
	case "", "json":
		b, err := json.MarshalIndent(rr, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case "yaml":
		return yaml.Marshal(rr)
	default:
		return nil, fmt.Errorf("未知的 report 格式：%q", format)
	}
}

// WriteReport 原子写入 report（覆盖上一次），返回写入路径。
func WriteReport(rr domain.ExportReport, format string) (string, error) {
	if format == "" {
		format = "json"
	}
	b, err := EncodeReport(rr, format)
	if err != nil {
		return "", err
	}
	path := ReportPath(rr.OutDir, format)
	if err := fsx.WriteFileAtomicReplace(filepath.Dir(path), filepath.Base(path), b); err != nil {
		return "", err
	}
	return path, nil
}
