package planner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/strmgen/internal/domain"
)

func TestReadOutState_NotExist(t *testing.T) {
	st, err := ReadOutState(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("目录不存在不应报错：%v", err)
	}
	if len(st.ExistingNames) != 0 {
		t.Fatalf("期望空状态，实际 %v", st.ExistingNames)
	}
}

func TestPlanFiles_DuplicateNamesGetSuffix(t *testing.T) {
	recs := []domain.PointerRecord{
		{Name: "a.strm", Target: "https://h/1", Line: 1},
		{Name: "a.strm", Target: "https://h/2", Line: 2},
		{Name: "b.strm", Target: "https://h/3", Line: 3},
		{Name: "a.strm", Target: "https://h/4", Line: 4},
	}
	plans := PlanFiles(recs, domain.OutState{ExistingNames: map[string]struct{}{}})

	want := []string{"a.strm", "a__2.strm", "b.strm", "a__3.strm"}
	if len(plans) != len(want) {
		t.Fatalf("规划数量不正确：%d", len(plans))
	}
	for i, p := range plans {
		if p.File != want[i] {
			t.Fatalf("第 %d 个文件名：期望 %q，实际 %q", i, want[i], p.File)
		}
		if p.Record != recs[i] {
			t.Fatalf("第 %d 个记录被改变：%+v", i, p.Record)
		}
	}
}

func TestPlanFiles_MarksExisting(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.strm"), []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	st, err := ReadOutState(dir)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	plans := PlanFiles([]domain.PointerRecord{
		{Name: "a.strm", Target: "https://h/1", Line: 1},
		{Name: "b.strm", Target: "https://h/2", Line: 2},
	}, st)
	if !plans[0].Exists || plans[1].Exists {
		t.Fatalf("Exists 标记不正确：%+v", plans)
	}
	if plans[0].File != "a.strm" {
		t.Fatalf("已有文件不应触发改名：%q", plans[0].File)
	}
}

func TestSafeFileName(t *testing.T) {
	cases := map[string]string{
		"电影1.strm":          "电影1.strm",
		"play?f=a.strm":      "play_f=a.strm",
		`a\b:c*d.strm`:       "a_b_c_d.strm",
		"...strm":            "video.strm",
		"  spaced name.strm": "spaced name.strm",
	}
	for in, want := range cases {
		if got := SafeFileName(in); got != want {
			t.Fatalf("%q：期望 %q，实际 %q", in, want, got)
		}
	}
}
