package move

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/vidmover/internal/domain"
)

// ErrOutsideRoot 表示描述符的 AbsPath 不在 source 根目录之下（例如扫描后根目录被换掉）。
var ErrOutsideRoot = errors.New("文件不在 source 根目录下")

// PlanOne 为单个文件计算目标路径：dst / <相对父目录> / <文件名>。
//
// 相对路径基于 f.AbsPath 现算，不使用扫描时的 RelPath 快照；
// srcRoot/dstRoot 必须已经是规范绝对路径。
func PlanOne(f domain.VideoFile, srcRoot, dstRoot string) (domain.MovePlan, error) {
	src := filepath.Clean(f.AbsPath)
	rel, err := filepath.Rel(srcRoot, src)
	if err != nil {
		return domain.MovePlan{}, fmt.Errorf("%w：%q：%v", ErrOutsideRoot, src, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return domain.MovePlan{}, fmt.Errorf("%w：%q（source=%q）", ErrOutsideRoot, src, srcRoot)
	}

	return domain.MovePlan{
		SrcAbs:  src,
		DstAbs:  filepath.Join(dstRoot, filepath.Dir(rel), filepath.Base(src)),
		RelPath: rel,
		Size:    f.Size,
	}, nil
}

// Plan 为整批文件生成确定性的移动计划（不做任何写入/移动），顺序与输入一致。
// 无法规划的文件以失败的 MoveOutcome 返回，不中断其他文件。
func Plan(files []domain.VideoFile, source, destination string, opts ...Option) ([]domain.MoveOutcome, error) {
	o := buildOptions(opts)

	srcRoot, dstRoot, err := resolveRoots(o, source, destination)
	if err != nil {
		return nil, err
	}

	out := make([]domain.MoveOutcome, 0, len(files))
	for _, f := range files {
		p, err := PlanOne(f, srcRoot, dstRoot)
		if err != nil {
			p = domain.MovePlan{SrcAbs: f.AbsPath, Size: f.Size}
		}
		out = append(out, domain.MoveOutcome{Plan: p, Err: err})
	}
	return out, nil
}
