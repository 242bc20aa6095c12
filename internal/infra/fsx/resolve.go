package fsx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// 与大多数 Unix 内核的 MAXSYMLINKS 同量级。
const maxLinks = 40

// Resolve 把 p 解析为 clean + absolute 的规范路径，并展开路径上的符号链接。
//
// 与 filepath.EvalSymlinks 不同：路径不要求存在。已存在的前缀逐段 Lstat/Readlink 展开，
// 第一个不存在（或不可访问）的分量起按字面拼接。
// 这样 destination 尚未创建时，也能与 source 做可靠的包含关系比较。
func Resolve(fsys billy.Filesystem, p string) (string, error) {
	abs, err := filepath.Abs(strings.TrimSpace(p))
	if err != nil {
		return "", err
	}
	return resolveLinks(OrOS(fsys), abs)
}

func resolveLinks(fsys billy.Filesystem, abs string) (string, error) {
	vol, rest := splitAbs(abs)
	resolved := vol + string(filepath.Separator)
	links := 0

	for i := 0; i < len(rest); i++ {
		name := rest[i]
		switch name {
		case "", ".":
			continue
		case "..":
			resolved = filepath.Dir(resolved)
			continue
		}

		next := filepath.Join(resolved, name)
		fi, err := fsys.Lstat(next)
		if err != nil {
			// 剩余部分按字面处理（Join 会顺带 Clean）。
			return filepath.Join(append([]string{next}, rest[i+1:]...)...), nil
		}
		if fi.Mode()&os.ModeSymlink == 0 {
			resolved = next
			continue
		}

		links++
		if links > maxLinks {
			return "", fmt.Errorf("解析路径 %q 失败：符号链接层级过深", abs)
		}
		target, err := fsys.Readlink(next)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(resolved, target)
		}

		// 用链接目标替换已解析的前缀，从头再走一遍。
		tvol, trest := splitAbs(filepath.Clean(target))
		rest = append(trest, rest[i+1:]...)
		resolved = tvol + string(filepath.Separator)
		i = -1
	}

	return filepath.Clean(resolved), nil
}

func splitAbs(abs string) (vol string, parts []string) {
	vol = filepath.VolumeName(abs)
	tail := strings.Trim(abs[len(vol):], string(filepath.Separator))
	if tail == "" {
		return vol, nil
	}
	return vol, strings.Split(tail, string(filepath.Separator))
}

// IsUnder 判断 path 是否等于 base 或位于 base 之下（两者都应已 Clean）。
func IsUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	if strings.HasSuffix(base, sep) {
		// base 是卷根（例如 "/"）。
		return strings.HasPrefix(path, base)
	}
	return strings.HasPrefix(path, base+sep)
}
