package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
)

// 通过可替换的函数指针，让测试能稳定模拟 EXDEV 等错误。
var renameFunc = func(fsys billy.Basic, from, to string) error {
	return fsys.Rename(from, to)
}

const copyBufferSize = 64 * 1024

// CrossDeviceError 表示跨盘（EXDEV）rename 失败后，copy+delete 回退也没有完成。
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("跨盘移动失败（EXDEV）：%q -> %q；copy+delete 回退失败：%v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// IsCrossDevice 判断 err 是否为跨盘回退失败。
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// Rename 封装 fsys.Rename（不做任何回退），主要给原子写入使用。
func Rename(fsys billy.Basic, src, dst string) error {
	return renameFunc(fsys, src, dst)
}

// Move 把单个文件从 src 移到 dst。
//
// 同一文件系统内是一次原子 rename；遇到 EXDEV 时回退为 copy + 删除源文件。
// 目标已存在时的行为取决于底层 rename（Unix 上会覆盖），这里不做冲突处理。
func Move(fsys billy.Filesystem, src, dst string) error {
	err := renameFunc(fsys, src, dst)
	if err == nil {
		return nil
	}
	if !isEXDEV(err) {
		return err
	}
	if cerr := copyThenRemove(fsys, src, dst); cerr != nil {
		return &CrossDeviceError{Src: src, Dst: dst, Err: cerr}
	}
	return nil
}

func copyThenRemove(fsys billy.Filesystem, src, dst string) error {
	fi, err := fsys.Stat(src)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("源路径是目录：%q", src)
	}

	if err := copyFile(fsys, src, dst, fi); err != nil {
		return err
	}

	if err := fsys.Remove(src); err != nil {
		return fmt.Errorf("已复制到目标，但删除源文件失败：%w", err)
	}
	return nil
}

func copyFile(fsys billy.Filesystem, src, dst string, fi os.FileInfo) (err error) {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fsys.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		// 复制没完成：不留下半截目标文件。
		if err != nil {
			_ = fsys.Remove(dst)
		}
	}()

	buf := make([]byte, copyBufferSize)
	if _, err = io.CopyBuffer(out, in, buf); err != nil {
		_ = out.Close()
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}

	// 权限与修改时间：best-effort（并非所有文件系统都支持）。
	if ch, ok := fsys.(billy.Change); ok {
		_ = ch.Chmod(dst, fi.Mode().Perm())
		_ = ch.Chtimes(dst, fi.ModTime(), fi.ModTime())
	}
	return nil
}
