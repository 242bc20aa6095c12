package run

import (
	"time"

	"github.com/John-Robertt/vidmover/internal/config"
	"github.com/John-Robertt/vidmover/internal/domain"
	"github.com/John-Robertt/vidmover/internal/move"
)

// Observer 用于把“运行进度/阶段/逐条结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 事件在调用 Execute/Session 方法的 goroutine 上同步发出；跨 goroutine 展示由实现自行转交。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnFound 在扫描发现每个视频文件时调用，顺序即扫描顺序。
	OnFound(f domain.VideoFile)
	// OnPhaseDone 在阶段结束时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)

	move.Observer
}

// nopObserver 让执行流程不必到处判断 nil。
type nopObserver struct{}

func (nopObserver) OnStart(config.EffectiveConfig) {}

func (nopObserver) OnFound(domain.VideoFile) {}

func (nopObserver) OnPhaseDone(string, map[string]any, time.Duration) {}

func (nopObserver) OnProgress(int, int) {}

func (nopObserver) OnError(string, error) {}

func orNop(obs Observer) Observer {
	if obs == nil {
		return nopObserver{}
	}
	return obs
}
