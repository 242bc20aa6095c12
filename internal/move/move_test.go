package move

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/vidmover/internal/domain"
	"github.com/John-Robertt/vidmover/internal/scan"
)

type recorder struct {
	progress [][2]int
	errPaths []string
}

func (r *recorder) OnProgress(done, total int) { r.progress = append(r.progress, [2]int{done, total}) }

func (r *recorder) OnError(path string, err error) { r.errPaths = append(r.errPaths, path) }

func TestMoveAll_PreservesStructure(t *testing.T) {
	fsys := memfs.New()
	write(t, fsys, "/src/a/b/c.mp4", "c")
	write(t, fsys, "/src/top.mkv", "top")

	files := mustScan(t, fsys, "/src", "/dst")
	rec := &recorder{}

	res, err := MoveAll(files, "/src", "/dst", rec, WithFS(fsys))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Moved)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, rec.progress)
	assert.Empty(t, rec.errPaths)

	assertContent(t, fsys, "/dst/a/b/c.mp4", "c")
	assertContent(t, fsys, "/dst/top.mkv", "top")
	assertGone(t, fsys, "/src/a/b/c.mp4")
	assertGone(t, fsys, "/src/top.mkv")

	// 移空的源目录保留。
	fi, err := fsys.Stat("/src/a/b")
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}

func TestMoveAll_VanishedFileCountsAsErrorAndContinues(t *testing.T) {
	fsys := memfs.New()
	write(t, fsys, "/src/1.mp4", "1")
	write(t, fsys, "/src/2.mp4", "2")
	write(t, fsys, "/src/3.mp4", "3")

	files := mustScan(t, fsys, "/src", "/dst")
	require.Len(t, files, 3)
	require.NoError(t, fsys.Remove("/src/2.mp4"))

	rec := &recorder{}
	res, err := MoveAll(files, "/src", "/dst", rec, WithFS(fsys))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Moved)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, len(files), res.Moved+res.Failed)
	assert.Equal(t, []string{filepath.FromSlash("/src/2.mp4")}, rec.errPaths)
	// 进度计数只随成功递增，total 固定。
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}}, rec.progress)

	require.Len(t, res.Outcomes, 3)
	assert.True(t, res.Outcomes[0].OK())
	assert.False(t, res.Outcomes[1].OK())
	assert.True(t, res.Outcomes[2].OK())
	assertContent(t, fsys, "/dst/3.mp4", "3")
}

func TestMoveAll_EmptyListStillCreatesDestination(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, fsys.MkdirAll("/src", 0o755))

	res, err := MoveAll(nil, "/src", "/dst/nested", nil, WithFS(fsys))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Moved)
	assert.Equal(t, 0, res.Failed)

	fi, err := fsys.Stat("/dst/nested")
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	// 再来一次：目录已存在也不能失败。
	_, err = MoveAll(nil, "/src", "/dst/nested", nil, WithFS(fsys))
	require.NoError(t, err)
}

func TestMoveAll_RecomputesRelativePathFromAbsPath(t *testing.T) {
	fsys := memfs.New()
	write(t, fsys, "/src/a/x.mp4", "x")

	// RelPath 快照被篡改：移动仍以 AbsPath 为准。
	files := []domain.VideoFile{{AbsPath: "/src/a/x.mp4", RelPath: "stale/x.mp4", Name: "x.mp4", Size: 1}}

	res, err := MoveAll(files, "/src", "/dst", nil, WithFS(fsys))
	require.NoError(t, err)
	require.Equal(t, 1, res.Moved)
	assertContent(t, fsys, "/dst/a/x.mp4", "x")
}

func TestMoveAll_OutsideRootIsPerItemError(t *testing.T) {
	fsys := memfs.New()
	write(t, fsys, "/other/x.mp4", "x")
	write(t, fsys, "/src/y.mp4", "y")

	files := []domain.VideoFile{
		{AbsPath: "/other/x.mp4", Name: "x.mp4"},
		{AbsPath: "/src/y.mp4", Name: "y.mp4"},
	}

	var logBuf bytes.Buffer
	var gotErr error
	res, err := MoveAll(files, "/src", "/dst", Funcs{
		Error: func(path string, err error) { gotErr = err },
	}, WithFS(fsys), WithLogger(slog.New(slog.NewTextHandler(&logBuf, nil))))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Moved)
	assert.Equal(t, 1, res.Failed)
	assert.True(t, errors.Is(gotErr, ErrOutsideRoot), "期望 ErrOutsideRoot，实际：%v", gotErr)
	assert.Contains(t, logBuf.String(), "x.mp4")
	assertContent(t, fsys, "/other/x.mp4", "x")
}

func TestMoveAll_FuncsWithNilFieldsIsSafe(t *testing.T) {
	fsys := memfs.New()
	write(t, fsys, "/src/a.mp4", "a")
	files := mustScan(t, fsys, "/src", "/dst")
	require.NoError(t, fsys.Remove("/src/a.mp4"))

	res, err := MoveAll(files, "/src", "/dst", Funcs{}, WithFS(fsys))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
}

func TestMoveAll_RealFilesystem_NestedDestination(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a", "b", "c.mp4")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("c"), 0o644))
	dst := filepath.Join(root, "VIDEOS")

	files, err := scan.Scan(root, dst, nil)
	require.NoError(t, err)
	require.Len(t, files, 1)

	res, err := MoveAll(files, root, dst, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Moved)

	_, err = os.Stat(filepath.Join(dst, "a", "b", "c.mp4"))
	require.NoError(t, err)
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	// 再扫一遍：已移入 destination 的文件不会被重新发现。
	again, err := scan.Scan(root, dst, nil)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestPlan_DryRunDoesNotTouchFiles(t *testing.T) {
	fsys := memfs.New()
	write(t, fsys, "/src/a/x.mp4", "x")
	files := mustScan(t, fsys, "/src", "/src/VIDEOS")
	files = append(files, domain.VideoFile{AbsPath: "/elsewhere/y.mp4", Size: 3})

	plans, err := Plan(files, "/src", "/src/VIDEOS", WithFS(fsys))
	require.NoError(t, err)
	require.Len(t, plans, 2)

	assert.NoError(t, plans[0].Err)
	assert.Equal(t, filepath.FromSlash("/src/VIDEOS/a/x.mp4"), plans[0].Plan.DstAbs)
	assert.Equal(t, filepath.Join("a", "x.mp4"), plans[0].Plan.RelPath)
	assert.ErrorIs(t, plans[1].Err, ErrOutsideRoot)

	assertContent(t, fsys, "/src/a/x.mp4", "x")
	_, err = fsys.Stat("/src/VIDEOS")
	assert.True(t, os.IsNotExist(err), "dry-run 不应创建 destination")
}

func mustScan(t *testing.T, fsys billy.Filesystem, src, dst string) []domain.VideoFile {
	t.Helper()
	files, err := scan.Scan(src, dst, nil, scan.WithFS(fsys))
	require.NoError(t, err)
	return files
}

func write(t *testing.T, fsys billy.Filesystem, path, content string) {
	t.Helper()
	require.NoError(t, util.WriteFile(fsys, path, []byte(content), 0o644))
}

func assertContent(t *testing.T, fsys billy.Filesystem, path, want string) {
	t.Helper()
	b, err := util.ReadFile(fsys, path)
	require.NoError(t, err)
	assert.Equal(t, want, string(b))
}

func assertGone(t *testing.T, fsys billy.Filesystem, path string) {
	t.Helper()
	_, err := fsys.Stat(path)
	assert.True(t, os.IsNotExist(err), "%s 应已不存在：%v", path, err)
}
