package domain

// VideoFile 描述一次扫描得到的视频文件（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute，且位于解析后的 source 根目录之下
// - RelPath 在扫描时由 AbsPath 相对 source 根目录计算一次，之后不再更新（快照）
// - Size 是扫描时的快照，移动阶段不重新校验
type VideoFile struct {
	AbsPath string
	RelPath string
	Name    string // 文件名（含扩展名，保持原大小写）
	Ext     string // 小写，含 '.'，例如 ".mp4"
	Size    int64
}
