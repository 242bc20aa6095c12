package scan

import (
	"bytes"
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
)

func TestScan_FindsVideosAndSkipsOthers(t *testing.T) {
	fsys := memfs.New()
	touch(t, fsys, "/src/a/b/c.mp4")
	touch(t, fsys, "/src/top.mkv")
	touch(t, fsys, "/src/a/notes.txt")
	touch(t, fsys, "/src/a/cover.jpg")

	got, err := Scan("/src", "/elsewhere", nil, WithFS(fsys))
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{filepath.Join("a", "b", "c.mp4"), "top.mkv"},
		relPaths(got),
	)
	for _, f := range got {
		assert.Equal(t, filepath.Join(string(filepath.Separator)+"src", f.RelPath), f.AbsPath)
		assert.Equal(t, filepath.Base(f.AbsPath), f.Name)
	}
}

func TestScan_ExcludesNestedDestination(t *testing.T) {
	fsys := memfs.New()
	touch(t, fsys, "/src/in/x.mp4")
	// destination 嵌套在 source 内：无论是否为视频都不应出现。
	touch(t, fsys, "/src/VIDEOS/in/old.mp4")
	touch(t, fsys, "/src/VIDEOS/deep/er/y.avi")
	// 同前缀但不是 destination 的子目录：应被扫描到。
	touch(t, fsys, "/src/VIDEOS2/z.mov")

	got, err := Scan("/src", "/src/VIDEOS", nil, WithFS(fsys))
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{filepath.Join("in", "x.mp4"), filepath.Join("VIDEOS2", "z.mov")},
		relPaths(got),
	)
}

func TestScan_DestinationThroughSymlinkStillExcluded(t *testing.T) {
	fsys := memfs.New()
	touch(t, fsys, "/src/keep.mp4")
	touch(t, fsys, "/src/out/moved.mp4")
	require.NoError(t, fsys.Symlink("/src/out", "/alias"))

	got, err := Scan("/src", "/alias", nil, WithFS(fsys))
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.mp4"}, relPaths(got))
}

func TestScan_SourceInsideDestinationFindsNothing(t *testing.T) {
	fsys := memfs.New()
	touch(t, fsys, "/dst/src/a.mp4")

	got, err := Scan("/dst/src", "/dst", nil, WithFS(fsys))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScan_ExtCaseInsensitive(t *testing.T) {
	fsys := memfs.New()
	touch(t, fsys, "/src/X.MP4")
	touch(t, fsys, "/src/y.Mkv")

	got, err := Scan("/src", "/dst", nil, WithFS(fsys))
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, f := range got {
		assert.Contains(t, []string{".mp4", ".mkv"}, f.Ext)
	}
	assert.Equal(t, "X.MP4", got[0].Name, "文件名保持原大小写")
}

func TestScan_OnFoundCalledInOrder(t *testing.T) {
	fsys := memfs.New()
	touch(t, fsys, "/src/b/2.mp4")
	touch(t, fsys, "/src/a/1.mp4")
	touch(t, fsys, "/src/c.mp4")

	var seen []domain.VideoFile
	got, err := Scan("/src", "/dst", func(f domain.VideoFile) { seen = append(seen, f) }, WithFS(fsys))
	require.NoError(t, err)
	assert.Equal(t, got, seen)
}

func TestScan_SizeSnapshot(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "/src/a.mp4", bytes.Repeat([]byte("x"), 1536), 0o644))

	got, err := Scan("/src", "/dst", nil, WithFS(fsys))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.EqualValues(t, 1536, got[0].Size)
}

func TestScan_BrokenSymlinkSkippedAndLogged(t *testing.T) {
	fsys := memfs.New()
	touch(t, fsys, "/src/ok.mp4")
	require.NoError(t, fsys.Symlink("/nowhere/gone.mp4", "/src/broken.mp4"))

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	got, err := Scan("/src", "/dst", nil, WithFS(fsys), WithLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.mp4"}, relPaths(got))
	assert.Contains(t, logBuf.String(), "broken.mp4")
}

func TestScan_ExcludeDirsFromConfig(t *testing.T) {
	fsys := memfs.New()
	touch(t, fsys, "/src/temp/a.mp4")
	touch(t, fsys, "/src/ok/b.mkv")

	got, err := Scan("/src", "/dst", nil, WithFS(fsys), WithExcludeDirs([]string{"temp", " "}))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("ok", "b.mkv")}, relPaths(got))
}

func TestScan_MissingSourceIsError(t *testing.T) {
	_, err := Scan("/missing", "/dst", nil, WithFS(memfs.New()))
	require.Error(t, err)
}

func TestScan_RealFilesystem(t *testing.T) {
	root := t.TempDir()
	writeOS(t, filepath.Join(root, "in", "a.mp4"))
	writeOS(t, filepath.Join(root, "VIDEOS", "b.mp4"))

	got, err := Scan(root, filepath.Join(root, "VIDEOS"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("in", "a.mp4")}, relPaths(got))
}

func TestIsVideo(t *testing.T) {
	assert.True(t, IsVideo("a.m2ts"))
	assert.True(t, IsVideo("A.RMVB"))
	assert.False(t, IsVideo("a.mp4.part"))
	assert.False(t, IsVideo("mp4"))
	assert.Len(t, VideoExtensions(), 23)

	// 整个文件名就是扩展名：视为没有扩展名。
	assert.False(t, IsVideo(".mp4"))
	assert.False(t, IsVideo(".MKV"))
	assert.True(t, IsVideo(".hidden.mp4"))
}

func TestScan_HiddenExtensionOnlyFileSkipped(t *testing.T) {
	fsys := memfs.New()
	touch(t, fsys, "/src/.mp4")
	touch(t, fsys, "/src/.clip.mp4")

	got, err := Scan("/src", "/dst", nil, WithFS(fsys))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ".clip.mp4", got[0].RelPath)
}

func touch(t *testing.T, fsys billy.Filesystem, path string) {
	t.Helper()
	require.NoError(t, util.WriteFile(fsys, path, []byte("x"), 0o644))
}

func writeOS(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func relPaths(files []domain.VideoFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.RelPath)
	}
	return out
}
