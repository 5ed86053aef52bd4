package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// 通过可替换的函数指针，让测试能稳定模拟 rename 失败。
var renameFunc = os.Rename

// PathTypeConflictError 表示目标路径类型冲突（例如期望文件但实际是目录）。
// 上层把它映射为 error_code=target_conflict。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// EnsureDir 确保 dir 存在且是目录。
func EnsureDir(dir string) error {
	fi, err := os.Stat(dir)
	if err == nil {
		if fi.IsDir() {
			return nil
		}
		return &PathTypeConflictError{Path: dir, Want: "dir", Got: "file"}
	}
	if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// WriteFileAtomicNoOverwrite 在 dir 下原子写入 name（临时文件 + rename）。
//
// 目标已存在时返回 os.ErrExist（上层视为 skipped），目标是目录等非普通文件时返回 PathTypeConflictError。
// 注意：检查与 rename 之间存在竞争窗口；批量导出期间由目录锁（Lock）串行化写入方。
func WriteFileAtomicNoOverwrite(dir, name string, data []byte) error {
	if err := checkTarget(filepath.Join(filepath.Clean(dir), name)); err != nil {
		return err
	}
	return writeFileAtomic(dir, name, data, 0o644)
}

// WriteFileAtomicReplace 写入并覆盖同名普通文件（Windows 上为 best-effort）。
func WriteFileAtomicReplace(dir, name string, data []byte) error {
	dst := filepath.Join(filepath.Clean(dir), name)
	if err := checkTarget(dst); err != nil && !errors.Is(err, os.ErrExist) {
		return err
	}
	return writeFileAtomic(dir, name, data, 0o644)
}

func checkTarget(dst string) error {
	fi, err := os.Lstat(dst)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if fi.IsDir() {
		return &PathTypeConflictError{Path: dst, Want: "file", Got: "dir"}
	}
	if !fi.Mode().IsRegular() {
		return &PathTypeConflictError{Path: dst, Want: "regular file", Got: fi.Mode().Type().String()}
	}
	return os.ErrExist
}

func writeFileAtomic(dir, name string, data []byte, perm os.FileMode) error {
	if err := EnsureDir(dir); err != nil {
		return err
	}

	// 临时文件必须与目标同目录，rename 才是原子的；前缀带 '.'，避免被媒体库扫到。
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := writeAll(tmp, data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := renameFunc(tmpName, filepath.Join(dir, name)); err != nil {
		return err
	}

	_ = syncDirBestEffort(dir)
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func syncDirBestEffort(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
