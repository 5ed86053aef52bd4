package scan

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/strmgen/internal/domain"
)

// ScanPointers 扫描 root 下的 .strm 文件并回读其 target。
//
// 规则：
// - 扩展名不区分大小写
// - 以 '.' 开头的文件与目录跳过（锁文件、原子写入的临时文件、.strmgen/ 报告目录）
// - target 取文件中第一行非空内容（去首尾空白）；空文件的 target 为空串
func ScanPointers(root string) ([]domain.PointerFile, error) {
	root = filepath.Clean(root)

	files := make([]domain.PointerFile, 0, 64)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), domain.PointerExt) {
			return nil
		}

		target, err := readTarget(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, domain.PointerFile{RelPath: rel, Target: target})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func readTarget(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line, nil
		}
	}
	return "", sc.Err()
}
