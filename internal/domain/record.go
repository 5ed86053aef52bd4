package domain

import (
	"strconv"
	"strings"
)

// PointerExt 是指针文件（STRM）的扩展名；媒体服务器按扩展名识别。
const PointerExt = ".strm"

// PointerRecord 是一行输入解析得到的结构化结果。
//
// 不变量（实现必须遵守）：
// - Name 必须以 PointerExt 结尾（永远不是原始媒体扩展名）
// - Target 非空（只有在该行匹配到 URL 时才会创建记录）
// - 记录顺序与输入行顺序一致；批量导出依赖该顺序
type PointerRecord struct {
	Name   string `json:"name" yaml:"name"`
	Target string `json:"target" yaml:"target"`
	// Line 是来源行在非空行中的 1-based 位置（兜底文件名使用同一个位置）。
	Line int `json:"line" yaml:"line"`
}

// Valid 校验记录是否满足上述不变量。
func (r PointerRecord) Valid() bool {
	return strings.HasSuffix(r.Name, PointerExt) && r.Target != ""
}

// Reason 描述一次解析的整体结果。它不是 error：空输入与无匹配都是正常分支。
type Reason string

const (
	ReasonOK         Reason = "ok"
	ReasonEmptyInput Reason = "empty_input"
	ReasonNoMatches  Reason = "no_matches"
)

// Message 返回面向用户的提示文案（count 仅在 ReasonOK 时使用）。
func (r Reason) Message(count int) string {
	switch r {
	case ReasonEmptyInput:
		return "请输入 115 分享链接"
	case ReasonNoMatches:
		return "未找到有效的视频链接"
	default:
		return "已解析 " + strconv.Itoa(count) + " 个文件"
	}
}

// PointerFile 是磁盘上已存在的一个 .strm 文件（用于回读校验）。
type PointerFile struct {
	RelPath string `json:"rel_path" yaml:"rel_path"`
	Target  string `json:"target" yaml:"target"`
}
