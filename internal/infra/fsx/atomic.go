package fsx

import (
	"path/filepath"

	"github.com/go-git/go-billy/v5"
)

// WriteFileAtomicReplace 在 dir 下原子写入 name（同目录临时文件 + rename），已存在则覆盖。
//
// - 临时文件必须与目标文件在同目录，以保证 rename 的原子性
// - 底层文件支持 Sync 时会先 Sync 再 rename
func WriteFileAtomicReplace(fsys billy.Filesystem, dir, name string, data []byte) error {
	fsys = OrOS(fsys)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	dst := filepath.Join(dir, name)

	// 前缀带 '.'，避免出现在普通目录列表里。
	tmp, err := fsys.TempFile(dir, "."+name+".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		// rename 成功后这里会得到 not-exist，忽略即可。
		_ = fsys.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if s, ok := tmp.(interface{ Sync() error }); ok {
		if err := s.Sync(); err != nil {
			return err
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return Rename(fsys, tmpName, dst)
}
