package run

import (
	"context"
	"time"

	"github.com/John-Robertt/vidmover/internal/config"
	"github.com/John-Robertt/vidmover/internal/domain"
)

// Execute 执行一次 run（dry-run/apply），并返回对外稳定的 RunReport。
// 单个文件的失败只体现在报告的 files 中，不中断整体。
func Execute(ctx context.Context, eff config.EffectiveConfig, opts ...Option) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, nil, opts...)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
//
// 流程：校验 -> 扫描 -> dry-run 只规划 / apply 真正移动。
// ctx 只在阶段之间检查；阶段内部不可中断。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, obs Observer, opts ...Option) domain.RunReport {
	obs = orNop(obs)
	obs.OnStart(eff)

	s := NewSession(eff, opts...)
	if err := s.Validate(); err != nil {
		return s.Report()
	}

	scanStarted := time.Now()
	files, err := s.Scan(ctx, obs.OnFound)
	if err != nil {
		return s.Report()
	}
	obs.OnPhaseDone("scan", map[string]any{
		"files": len(files),
		"bytes": s.TotalSize(),
	}, time.Since(scanStarted))

	if !eff.Apply {
		planStarted := time.Now()
		outcomes, err := s.Plan(ctx)
		if err != nil {
			return s.Report()
		}
		failed := 0
		for _, oc := range outcomes {
			if !oc.OK() {
				failed++
			}
		}
		obs.OnPhaseDone("plan", map[string]any{
			"planned": len(outcomes) - failed,
			"failed":  failed,
		}, time.Since(planStarted))
		return s.Report()
	}

	moveStarted := time.Now()
	res, err := s.Move(ctx, obs)
	if err != nil {
		return s.Report()
	}
	obs.OnPhaseDone("move", map[string]any{
		"moved":  res.Moved,
		"failed": res.Failed,
	}, time.Since(moveStarted))

	return s.Report()
}
