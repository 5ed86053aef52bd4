package export

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/John-Robertt/strmgen/internal/infra/fsx"
)

var (
	_ Sink   = (*DirSink)(nil)
	_ Locker = (*DirSink)(nil)
	_ Sink   = (*WriterSink)(nil)
)

// DirSink 把 .strm 原子写入 Dir。
//
// Overwrite=false 时已存在的文件返回 os.ErrExist（report 中记为 skipped）。
type DirSink struct {
	Dir       string
	Overwrite bool
}

func (s *DirSink) Deliver(ctx context.Context, name string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name != filepath.Base(name) {
		return fmt.Errorf("非法文件名：%q", name)
	}
	if s.Overwrite {
		return fsx.WriteFileAtomicReplace(s.Dir, name, payload)
	}
	return fsx.WriteFileAtomicNoOverwrite(s.Dir, name, payload)
}

// Lock 在整批导出期间锁定输出目录，避免两个进程交错写同一批文件。
func (s *DirSink) Lock() (func() error, error) {
	return fsx.Lock(s.Dir)
}

// WriterSink 是 dry-run 交付：每条输出一行 "name<TAB>target"。
type WriterSink struct {
	W io.Writer

	mu sync.Mutex
}

func (s *WriterSink) Deliver(ctx context.Context, name string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.W, "%s\t%s\n", name, payload)
	return err
}
