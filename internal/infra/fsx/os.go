package fsx

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// osFS 是“直通”本机文件系统的 billy.Filesystem（不做 chroot，路径按原样使用）。
//
// osfs.ChrootOS 本身不实现 billy.Change；这里补上 Chmod/Chtimes 等，
// 让跨盘 copy 回退时可以尽量保留权限与修改时间。
type osFS struct {
	osfs.ChrootOS
}

var (
	_ billy.Filesystem = (*osFS)(nil)
	_ billy.Change     = (*osFS)(nil)
)

// OS 返回直通本机文件系统的 billy.Filesystem。
func OS() billy.Filesystem {
	return &osFS{}
}

// Chroot 返回以 path 为根的新文件系统（billy.Chroot 接口要求）。
func (*osFS) Chroot(path string) (billy.Filesystem, error) {
	return osfs.New(path), nil
}

func (*osFS) Root() string {
	return string(filepath.Separator)
}

func (*osFS) Chmod(name string, mode os.FileMode) error { return os.Chmod(name, mode) }

func (*osFS) Lchown(name string, uid, gid int) error { return os.Lchown(name, uid, gid) }

func (*osFS) Chown(name string, uid, gid int) error { return os.Chown(name, uid, gid) }

func (*osFS) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(name, atime, mtime)
}

// OrOS 在 fsys 为 nil 时回退到本机文件系统（供各包的 Option 默认值使用）。
func OrOS(fsys billy.Filesystem) billy.Filesystem {
	if fsys == nil {
		return OS()
	}
	return fsys
}
