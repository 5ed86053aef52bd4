package run

import (
	"time"

	"github.com/John-Robertt/strmgen/internal/config"
	"github.com/John-Robertt/strmgen/internal/domain"
)

// Observer 用于把“阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - Observer 的实现必须并发安全：OnItemDone 可能来自多个 goroutine。
type Observer interface {
	// OnStart 在 Execute 开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（parse / plan / export）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemDone 在某个 .strm 交付完成时调用；done 是已完成数量（完成顺序，不是记录顺序）。
	OnItemDone(done, total int, res domain.ItemResult)
}
