// Package linkparse 把用户粘贴的多行文本解析为有序的 PointerRecord 序列。
//
// 提取逻辑是两次彼此独立的模式搜索（URL、带视频扩展名的文件名），每行都是“首个匹配获胜”。
package linkparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/John-Robertt/strmgen/internal/domain"
)

// VideoExts 是用于识别文件名的媒体扩展名（不区分大小写）。只用于命名，不做校验。
var VideoExts = []string{"mp4", "mkv", "avi", "mov", "flv", "wmv", "ts", "m4v"}

// spaceClass 是字符类内部使用的空白集合：ASCII 空白之外还包括 NBSP、全角空格（U+3000）等 Unicode 空白。
// RE2 的 \s 只匹配 ASCII 空白，粘贴自网页/中文输入法的文本常用后者分隔链接与文件名。
const spaceClass = `\t\n\v\f\r \x{a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}`

var (
	urlRE = regexp.MustCompile(`https?://[^` + spaceClass + `]+`)

	// 文件名片段：不含空白与 '/' 的一段 + '.' + 媒体扩展名。
	// 注意：没有词边界，"a.mp4x" 里的 "a.mp4" 也会被命中。
	nameRE = regexp.MustCompile(`(?i)[^` + spaceClass + `/]+\.(?:` + strings.Join(VideoExts, "|") + `)`)

	// 只替换末尾的媒体扩展名。
	extRE = regexp.MustCompile(`(?i)\.(?:` + strings.Join(VideoExts, "|") + `)$`)
)

// FallbackPrefix 是未找到文件名时兜底名称的前缀，形如 视频_3.strm。
const FallbackPrefix = "视频_"

// Parse 把 text 逐行解析为记录；prefix 可为空。
//
// 规则：
// - 按 '\n' 切分，逐行 TrimSpace，丢弃空行
// - 行内无 URL：静默跳过（策略，不是错误）
// - 名称：行内首个“文件名.媒体扩展名”片段，扩展名替换为 .strm；否则 视频_{位置}.strm
// - target：prefix 去空白后非空则为 prefix + "/" + url，否则为 url（不规范化重复的 '/'）
//
// 返回的 Reason 区分“没有任何非空行”（empty_input）与“有内容但一个 URL 都没有”（no_matches）。
// 纯函数：相同输入 => 相同输出。
func Parse(text, prefix string) ([]domain.PointerRecord, domain.Reason) {
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return []domain.PointerRecord{}, domain.ReasonEmptyInput
	}

	prefix = strings.TrimSpace(prefix)
	records := make([]domain.PointerRecord, 0, len(lines))
	for i, line := range lines {
		u := urlRE.FindString(line)
		if u == "" {
			continue
		}
		pos := i + 1
		records = append(records, domain.PointerRecord{
			Name:   nameFor(line, pos),
			Target: JoinTarget(prefix, u),
			Line:   pos,
		})
	}

	if len(records) == 0 {
		return records, domain.ReasonNoMatches
	}
	return records, domain.ReasonOK
}

// ParseLine 解析单行；pos 是该行的 1-based 位置（用于兜底名称）。
// ok=false 表示该行没有 URL。
func ParseLine(line, prefix string, pos int) (domain.PointerRecord, bool) {
	line = strings.TrimSpace(line)
	u := urlRE.FindString(line)
	if u == "" {
		return domain.PointerRecord{}, false
	}
	return domain.PointerRecord{
		Name:   nameFor(line, pos),
		Target: JoinTarget(strings.TrimSpace(prefix), u),
		Line:   pos,
	}, true
}

// JoinTarget 用单个 '/' 拼接 prefix 与 url；prefix 为空时原样返回 url。
// 这里刻意不做 '/' 去重："/webdav/" + "/" + url 会得到 "//"。
func JoinTarget(prefix, u string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return u
	}
	return prefix + "/" + u
}

// ToPointerName 把媒体文件名的末尾扩展名替换为 .strm；没有可识别扩展名时原样返回。
func ToPointerName(name string) string {
	return extRE.ReplaceAllString(name, domain.PointerExt)
}

// FallbackName 返回第 pos 行的兜底名称。
func FallbackName(pos int) string {
	return FallbackPrefix + strconv.Itoa(pos) + domain.PointerExt
}

func nameFor(line string, pos int) string {
	if m := nameRE.FindString(line); m != "" {
		return ToPointerName(m)
	}
	return FallbackName(pos)
}

func nonBlankLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}
