package reportstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/John-Robertt/vidmover/internal/domain"
	"github.com/John-Robertt/vidmover/internal/infra/fsx"
)

// Store 负责最近一次 RunReport 的落盘与读取（单文件，覆盖写，不保留历史）。
type Store struct {
	Path string
	fs   billy.Filesystem
}

var ErrNoReport = errors.New("reportstore: 尚无报告")

// New 返回写到 path 的 Store；fsys 为 nil 时使用本机文件系统。
func New(path string, fsys billy.Filesystem) Store {
	return Store{
		Path: filepath.Clean(strings.TrimSpace(path)),
		fs:   fsx.OrOS(fsys),
	}
}

// Write 以缩进 JSON 原子替换报告文件（父目录不存在则创建）。
func (s Store) Write(rr domain.RunReport) error {
	if s.Path == "" || s.Path == "." {
		return fmt.Errorf("报告路径不能为空")
	}
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(s.fs, filepath.Dir(s.Path), filepath.Base(s.Path), b)
}

// Read 读取上一次写入的报告；文件不存在返回 ErrNoReport。
func (s Store) Read() (domain.RunReport, error) {
	b, err := util.ReadFile(s.fs, s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.RunReport{}, ErrNoReport
		}
		return domain.RunReport{}, err
	}
	var rr domain.RunReport
	if err := json.Unmarshal(b, &rr); err != nil {
		return domain.RunReport{}, fmt.Errorf("解析报告 %q 失败：%w", s.Path, err)
	}
	return rr, nil
}
