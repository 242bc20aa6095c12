package scan

import (
	"path/filepath"
	"sort"
	"strings"
)

// videoExts 是固定的视频扩展名表（小写，含 '.'）。只按扩展名分类，不读文件内容。
var videoExts = map[string]struct{}{
	".mp4": {}, ".avi": {}, ".mkv": {}, ".mov": {}, ".wmv": {}, ".flv": {},
	".webm": {}, ".m4v": {}, ".3gp": {}, ".mpg": {}, ".mpeg": {}, ".vob": {},
	".ts": {}, ".mts": {}, ".m2ts": {}, ".divx": {}, ".xvid": {}, ".rm": {},
	".rmvb": {}, ".asf": {}, ".ogv": {}, ".f4v": {}, ".f4p": {},
}

// IsVideo 判断文件名是否为视频（扩展名大小写不敏感）。
// 整个文件名就是扩展名的隐藏文件（例如 ".mp4"）视为没有扩展名。
func IsVideo(name string) bool {
	ext := filepath.Ext(name)
	if ext == name {
		return false
	}
	_, ok := videoExts[strings.ToLower(ext)]
	return ok
}

// VideoExtensions 返回排序后的扩展名列表（用于 run --help）。
func VideoExtensions() []string {
	out := make([]string, 0, len(videoExts))
	for e := range videoExts {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
