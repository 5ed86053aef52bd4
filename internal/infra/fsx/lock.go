package fsx

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockName 是输出目录下的锁文件名（以 '.' 开头，不进媒体库视图）。
const LockName = ".strmgen.lock"

// ErrLocked 表示另一个 strmgen 进程正在向同一目录导出。
var ErrLocked = errors.New("输出目录正被其他进程占用")

// Lock 对 dir 加非阻塞的进程间建议锁，返回解锁函数。
// 目录不存在时会先创建。
func Lock(dir string) (unlock func() error, err error) {
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}
	fl := flock.New(filepath.Join(dir, LockName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("锁定输出目录失败：%w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w：%s", ErrLocked, dir)
	}
	return fl.Unlock, nil
}
