package planner

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/John-Robertt/strmgen/internal/domain"
)

// ReadOutState 读取输出目录的现状（只做 ReadDir，不读文件内容）。
// 若 outDir 不存在，返回空状态且不报错。
func ReadOutState(outDir string) (domain.OutState, error) {
	st := domain.OutState{
		OutDir:        outDir,
		ExistingNames: map[string]struct{}{},
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return domain.OutState{}, err
	}
	for _, e := range entries {
		st.ExistingNames[e.Name()] = struct{}{}
	}
	return st, nil
}

// PlanFiles 为每条记录分配落盘文件名（不做任何写入）。
//
// - 输出与 records 一一对应、顺序一致（记录本身不去重）
// - 同一批次内重名：第二个起追加 __2、__3 ...（扩展名保持 .strm）
// - 与目录中已有文件同名：不改名，只标记 Exists，由写入层决定覆盖或跳过
func PlanFiles(records []domain.PointerRecord, st domain.OutState) []domain.FilePlan {
	used := make(map[string]struct{}, len(records))
	plans := make([]domain.FilePlan, 0, len(records))

	for _, r := range records {
		name := allocName(SafeFileName(r.Name), used)
		used[name] = struct{}{}

		_, exists := st.ExistingNames[name]
		plans = append(plans, domain.FilePlan{
			Record: r,
			File:   name,
			Exists: exists,
		})
	}
	return plans
}

var unsafeChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]+`)

// SafeFileName 把记录名称转成跨平台可用的文件名。
// 记录名称可能来自 URL 片段（例如 "play?f=a.strm"），需要替换 Windows 非法字符。
func SafeFileName(name string) string {
	base := strings.TrimSuffix(name, domain.PointerExt)
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, " .")
	if base == "" {
		base = "video"
	}
	return base + domain.PointerExt
}

func allocName(name string, used map[string]struct{}) string {
	if _, ok := used[name]; !ok {
		return name
	}

	base := strings.TrimSuffix(name, domain.PointerExt)
	for n := 2; ; n++ {
		cand := fmt.Sprintf("%s__%d%s", base, n, domain.PointerExt)
		if _, ok := used[cand]; !ok {
			return cand
		}
	}
}
