package export

import "time"

// DefaultInterval 是批量导出相邻两条之间的默认间隔。
const DefaultInterval = 200 * time.Millisecond

// Policy 把记录下标映射为交付偏移（相对批次开始时间）。
type Policy interface {
	Offset(index int) time.Duration
}

// Interval 让第 i 条在 Step×i 之后交付：偏移随下标严格递增（Step>0 时）。
type Interval struct {
	Step time.Duration
}

func (p Interval) Offset(index int) time.Duration {
	if p.Step <= 0 || index <= 0 {
		return 0
	}
	return time.Duration(index) * p.Step
}

// Immediate 让所有条目立即交付，并发度只受 Exporter.Limit 约束。
type Immediate struct{}

func (Immediate) Offset(int) time.Duration { return 0 }

// PolicyFor 根据配置选择策略：immediate=true 或 step<=0 时不做节流。
func PolicyFor(step time.Duration, immediate bool) Policy {
	if immediate || step <= 0 {
		return Immediate{}
	}
	return Interval{Step: step}
}
