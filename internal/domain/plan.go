package domain

// MovePlan 规划一次文件移动（只描述 src/dst；真正执行由 move 包完成）。
//
// RelPath 是移动时基于 SrcAbs 重新计算得到的相对路径（而不是扫描快照）。
type MovePlan struct {
	SrcAbs  string
	DstAbs  string
	RelPath string
	Size    int64
}

// MoveOutcome 是单个文件移动的结果：成功（Err==nil）或带原因的失败。
// 批量移动只聚合 MoveOutcome，不依赖跨循环的错误传播。
type MoveOutcome struct {
	Plan MovePlan
	Err  error
}

func (o MoveOutcome) OK() bool { return o.Err == nil }
