//go:build unix

package fsx

import (
	"os"
	"syscall"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exdev(_ billy.Basic, oldpath, newpath string) error {
	return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
}

func TestMove_CrossDevice_FallsBackToCopyDelete(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "/mnt/a/x.mkv", []byte("payload"), 0o640))
	require.NoError(t, fsys.MkdirAll("/mnt/b", 0o755))
	swapRename(t, exdev)

	require.NoError(t, Move(fsys, "/mnt/a/x.mkv", "/mnt/b/x.mkv"))

	b, err := util.ReadFile(fsys, "/mnt/b/x.mkv")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(b))

	_, err = fsys.Stat("/mnt/a/x.mkv")
	assert.True(t, os.IsNotExist(err), "回退成功后应删除源文件")
}

func TestMove_CrossDevice_FallbackFailure(t *testing.T) {
	fsys := memfs.New()
	swapRename(t, exdev)

	// 源文件不存在：copy 失败，返回 CrossDeviceError。
	err := Move(fsys, "/mnt/a/missing.mkv", "/mnt/b/missing.mkv")
	require.Error(t, err)
	assert.True(t, IsCrossDevice(err), "期望 CrossDeviceError，实际：%T %v", err, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = fsys.Stat("/mnt/b/missing.mkv")
	assert.True(t, os.IsNotExist(err), "不应留下目标文件")
}
