// Package source 负责把各种输入（文件、stdin、剪贴板、保存的网页）统一成多行文本，交给 linkparse。
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/h2non/filetype"
)

const (
	ErrCodeNotFound  = "source_not_found"
	ErrCodeInvalid   = "source_invalid"
	ErrCodeClipboard = "clipboard_failed"
)

// MaxInputBytes 限制单次输入的大小；粘贴的链接列表远小于这个量级。
const MaxInputBytes = 8 << 20

// Error 是读取输入阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：输入文件 %q 不存在", e.Code, e.Path)
	case ErrCodeClipboard:
		return fmt.Sprintf("%s：读取剪贴板失败：%v", e.Code, e.Err)
	default:
		if e.Path != "" {
			return fmt.Sprintf("%s：输入 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：输入无效：%v", e.Code, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// 通过可替换的函数指针，让测试不依赖真实剪贴板。
var clipboardReadAll = clipboard.ReadAll

// FromClipboard 读取系统剪贴板文本。
func FromClipboard() (string, error) {
	text, err := clipboardReadAll()
	if err != nil {
		return "", &Error{Code: ErrCodeClipboard, Err: err}
	}
	return text, nil
}

// FromFile 读取 path；.html/.htm 或内容嗅探为 HTML 时按网页提取链接。
func FromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &Error{Code: ErrCodeNotFound, Path: path, Err: err}
		}
		return "", &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))
	text, err := decode(f, ext == ".html" || ext == ".htm")
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			se.Path = path
		}
		return "", err
	}
	return text, nil
}

// FromReader 读取 r（通常是 stdin），按内容嗅探是否为 HTML。
func FromReader(r io.Reader) (string, error) {
	return decode(r, false)
}

func decode(r io.Reader, forceHTML bool) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxInputBytes+1))
	if err != nil {
		return "", &Error{Code: ErrCodeInvalid, Err: err}
	}
	if len(b) > MaxInputBytes {
		return "", &Error{Code: ErrCodeInvalid, Err: fmt.Errorf("输入超过 %d 字节", MaxInputBytes)}
	}

	// 视频/图片/压缩包等二进制内容：直接拒绝，避免把乱码当链接解析。
	if kind, _ := filetype.Match(b); kind != filetype.Unknown {
		return "", &Error{Code: ErrCodeInvalid, Err: fmt.Errorf("不是文本输入（检测到 %s）", kind.MIME.Value)}
	}

	if forceHTML || isHTML(b) {
		return FromHTML(bytes.NewReader(b))
	}
	return string(b), nil
}

func isHTML(b []byte) bool {
	return strings.HasPrefix(http.DetectContentType(b), "text/html")
}
