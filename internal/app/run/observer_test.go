package run

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/strmgen/internal/config"
	"github.com/John-Robertt/strmgen/internal/domain"
)

type recordObserver struct {
	mu sync.Mutex

	startCalls int
	phases     []string
	names      []string
	lastDone   int
}

func (o *recordObserver) OnStart(eff config.EffectiveConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startCalls++
}

func (o *recordObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, name)
}

func (o *recordObserver) OnItemDone(done, total int, res domain.ItemResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.names = append(o.names, res.Name)
	if done > o.lastDone {
		o.lastDone = done
	}
}

func TestExecuteWithObserver_EmitsPhaseAndItemEvents(t *testing.T) {
	out := t.TempDir()

	obs := &recordObserver{}
	_ = ExecuteWithObserver(context.Background(), config.EffectiveConfig{
		Out:         out,
		Immediate:   true,
		Concurrency: 2,
		Apply:       true,
	}, Input{Text: "a.mp4 https://h/1\nb.mkv https://h/2"}, obs)

	if obs.startCalls != 1 {
		t.Fatalf("期望 OnStart 调用 1 次，实际 %d", obs.startCalls)
	}
	wantPhases := []string{"parse", "plan", "export"}
	if !reflect.DeepEqual(obs.phases, wantPhases) {
		t.Fatalf("阶段事件不符合预期：got=%v want=%v", obs.phases, wantPhases)
	}

	sort.Strings(obs.names)
	if !reflect.DeepEqual(obs.names, []string{"a.strm", "b.strm"}) {
		t.Fatalf("条目事件不符合预期：names=%v", obs.names)
	}
	if obs.lastDone != 2 {
		t.Fatalf("done 计数应到 2，实际 %d", obs.lastDone)
	}
}

func TestExecuteWithObserver_StopsAfterParseOnEmptyInput(t *testing.T) {
	obs := &recordObserver{}
	rr := ExecuteWithObserver(context.Background(), config.EffectiveConfig{Out: t.TempDir()}, Input{Text: "  \n"}, obs)

	if rr.Reason != domain.ReasonEmptyInput {
		t.Fatalf("期望 empty_input，实际 %q", rr.Reason)
	}
	if !reflect.DeepEqual(obs.phases, []string{"parse"}) {
		t.Fatalf("空输入只应产生 parse 阶段：%v", obs.phases)
	}
	if len(obs.names) != 0 {
		t.Fatalf("空输入不应产生条目事件：%v", obs.names)
	}
}

func TestExecuteWithObserver_NilObserver_SameResultAsExecute(t *testing.T) {
	cfg := config.EffectiveConfig{
		Out:         t.TempDir(),
		Prefix:      "/webdav",
		Concurrency: 1,
	}
	in := Input{SessionID: "s-1", Text: "x.ts https://h/1\nhttps://h/2"}

	a := Execute(context.Background(), cfg, in)
	b := ExecuteWithObserver(context.Background(), cfg, in, nil)

	// 时间字段本身允许有微小差异；对比时归零。
	a.StartedAt, a.FinishedAt = time.Time{}, time.Time{}
	b.StartedAt, b.FinishedAt = time.Time{}, time.Time{}

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("nil observer 不应改变结果：\nExecute=%+v\nWithObs=%+v", a, b)
	}
}
