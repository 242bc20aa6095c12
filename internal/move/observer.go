package move

// Observer 接收批量移动过程中的逐条事件。回调在移动循环内同步调用（同一个 goroutine）。
type Observer interface {
	// OnProgress 在每次成功移动后调用：done 单调递增，total 固定为输入长度。
	OnProgress(done, total int)
	// OnError 在单个文件移动失败时调用；批量处理会继续。
	OnError(path string, err error)
}

// Funcs 用函数字段实现 Observer，未设置的字段视为不关心。
type Funcs struct {
	Progress func(done, total int)
	Error    func(path string, err error)
}

var _ Observer = Funcs{}

func (f Funcs) OnProgress(done, total int) {
	if f.Progress != nil {
		f.Progress(done, total)
	}
}

func (f Funcs) OnError(path string, err error) {
	if f.Error != nil {
		f.Error(path, err)
	}
}
