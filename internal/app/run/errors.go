package run

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"

	"github.com/John-Robertt/vidmover/internal/domain"
	"github.com/John-Robertt/vidmover/internal/infra/fsx"
)

// Error 是运行级别的结构化错误（带 error_code），对应 RunReport.ErrorCode。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case domain.ErrCodeSourceNotFound:
		return fmt.Sprintf("%s：源目录不存在：%q", e.Code, e.Path)
	case domain.ErrCodeSourceNotDir:
		return fmt.Sprintf("%s：源路径不是目录：%q", e.Code, e.Path)
	case domain.ErrCodeSameDir:
		return fmt.Sprintf("%s：源目录和目标目录不能相同：%q", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Validate 做移动前的路径检查：source 存在且是目录，且与 destination 不是同一目录（按规范路径比较）。
// destination 位于 source 内部是允许的（默认就是 <source>/VIDEOS）。
func Validate(source, destination string, fsys billy.Filesystem) error {
	fsys = fsx.OrOS(fsys)

	fi, err := fsys.Stat(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Error{Code: domain.ErrCodeSourceNotFound, Path: source, Err: err}
		}
		return &Error{Code: domain.ErrCodeScanFailed, Path: source, Err: err}
	}
	if !fi.IsDir() {
		return &Error{Code: domain.ErrCodeSourceNotDir, Path: source}
	}

	src, err := fsx.Resolve(fsys, source)
	if err != nil {
		return &Error{Code: domain.ErrCodeScanFailed, Path: source, Err: err}
	}
	dst, err := fsx.Resolve(fsys, destination)
	if err != nil {
		return &Error{Code: domain.ErrCodeDestinationFailed, Path: destination, Err: err}
	}
	if src == dst {
		return &Error{Code: domain.ErrCodeSameDir, Path: src}
	}
	return nil
}
