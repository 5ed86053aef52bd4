package source

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FromHTML 从网页（例如保存下来的分享列表页）提取链接，每个链接输出一行 "href 文件名提示"。
//
// 文件名提示优先取 download 属性，其次 title 属性，最后取链接文字。
// 只保留 http/https 链接；输出行顺序与文档顺序一致。
func FromHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", &Error{Code: ErrCodeInvalid, Err: err}
	}

	var lines []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		low := strings.ToLower(href)
		if !strings.HasPrefix(low, "http://") && !strings.HasPrefix(low, "https://") {
			return
		}

		hint := strings.TrimSpace(s.AttrOr("download", ""))
		if hint == "" {
			hint = strings.TrimSpace(s.AttrOr("title", ""))
		}
		if hint == "" {
			hint = collapseSpace(s.Text())
		}

		if hint == "" || hint == href {
			lines = append(lines, href)
			return
		}
		lines = append(lines, href+" "+hint)
	})
	return strings.Join(lines, "\n"), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
