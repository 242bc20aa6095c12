package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

const (
	// ErrCodeNotFound 表示 --config 指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是 source 目录 / cwd 下的配置文件名。
	FileName = "vidmover.toml"
	// DefaultDestDir 是未指定 destination 时在 source 下使用的目录名。
	DefaultDestDir = "VIDEOS"
	// DefaultLogLevel 是日志级别的内置默认值。
	DefaultLogLevel = slog.LevelWarn

	appName = "vidmover"
)

// searchUserConfig 在 XDG 配置目录中查找 vidmover/config.toml（测试替换）。
var searchUserConfig = func() (string, error) {
	return xdg.SearchConfigFile(filepath.Join(appName, "config.toml"))
}

// DefaultReportPath 返回报告文件的默认位置：$XDG_STATE_HOME/vidmover/report.json。
func DefaultReportPath() string {
	return filepath.Join(xdg.StateHome, appName, "report.json")
}

// DefaultLogPath 返回 TUI 模式下日志文件的位置：$XDG_STATE_HOME/vidmover/vidmover.log。
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, appName, appName+".log")
}

// CLIArgs 是 CLI 暴露的入口参数，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖 config 里的 apply = true。
type CLIArgs struct {
	Source      string
	Destination string
	ConfigFile  string

	Apply    bool
	ApplySet bool

	Report     bool
	ReportSet  bool
	ReportPath string

	LogLevel string
}

// FileConfig 对应 vidmover.toml 的解析结构。未知字段忽略。
type FileConfig struct {
	Source      string   `toml:"source"`
	Destination string   `toml:"destination"`
	Apply       bool     `toml:"apply"`
	ExcludeDirs []string `toml:"exclude_dirs"`
	LogLevel    string   `toml:"log_level"`
	Report      bool     `toml:"report"`
	ReportPath  string   `toml:"report_path"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Source      string
	Destination string
	Apply       bool
	ExcludeDirs []string
	LogLevel    slog.Level

	Report     bool
	ReportPath string

	// ConfigFile 是实际读取到的配置文件；没有读取任何文件时为空。
	ConfigFile string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
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

// loaded 是一次发现+读取的结果；defined 记录文件里显式写过的键。
type loaded struct {
	path    string
	fc      FileConfig
	defined map[string]bool
}

func (l loaded) has(key string) bool { return l.defined[key] }

// LoadEffective 按约定发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定，只读一个文件）：
// 1) CLI 提供 --config：读取该文件（必选）
// 2) CLI 提供 source：尝试读取 <source>/vidmover.toml（可选）
// 3) 否则依次尝试 <cwd>/vidmover.toml、$XDG_CONFIG_HOME/vidmover/config.toml（可选）
//
// 覆盖优先级（固定）：CLI > 配置文件 > 默认值。
// 配置文件中的相对路径相对配置文件所在目录；CLI 中的相对路径相对 cwd。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	l, err := discover(cwdAbs, cli)
	if err != nil {
		return EffectiveConfig{}, err
	}
	return merge(cwdAbs, cli, l)
}

func discover(cwdAbs string, cli CLIArgs) (loaded, error) {
	if strings.TrimSpace(cli.ConfigFile) != "" {
		p := absCleanFrom(cwdAbs, cli.ConfigFile)
		l, exists, err := readFileConfig(p)
		if err != nil {
			return loaded{}, &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		if !exists {
			return loaded{}, &Error{Code: ErrCodeNotFound, Path: p, Err: os.ErrNotExist}
		}
		return l, nil
	}

	var candidates []string
	if strings.TrimSpace(cli.Source) != "" {
		candidates = append(candidates, filepath.Join(absCleanFrom(cwdAbs, cli.Source), FileName))
	} else {
		candidates = append(candidates, filepath.Join(cwdAbs, FileName))
		if p, err := searchUserConfig(); err == nil && p != "" {
			candidates = append(candidates, p)
		}
	}

	for _, p := range candidates {
		l, exists, err := readFileConfig(p)
		if err != nil {
			return loaded{}, &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		if exists {
			return l, nil
		}
	}
	return loaded{}, nil
}

func merge(cwdAbs string, cli CLIArgs, l loaded) (EffectiveConfig, error) {
	fc := l.fc
	cfgDir := cwdAbs
	if l.path != "" {
		cfgDir = filepath.Dir(l.path)
	}

	// source：CLI > config > cwd
	source := cwdAbs
	if strings.TrimSpace(cli.Source) != "" {
		source = absCleanFrom(cwdAbs, cli.Source)
	} else if strings.TrimSpace(fc.Source) != "" {
		source = absCleanFrom(cfgDir, fc.Source)
	}

	// destination：CLI > config > <source>/VIDEOS
	dest := filepath.Join(source, DefaultDestDir)
	if strings.TrimSpace(cli.Destination) != "" {
		dest = absCleanFrom(cwdAbs, cli.Destination)
	} else if strings.TrimSpace(fc.Destination) != "" {
		dest = absCleanFrom(cfgDir, fc.Destination)
	}

	// apply：CLI > config > 默认 false
	apply := false
	if cli.ApplySet {
		apply = cli.Apply
	} else if l.has("apply") {
		apply = fc.Apply
	}

	level := DefaultLogLevel
	levelText := strings.TrimSpace(fc.LogLevel)
	if strings.TrimSpace(cli.LogLevel) != "" {
		levelText = strings.TrimSpace(cli.LogLevel)
	}
	if levelText != "" {
		if err := level.UnmarshalText([]byte(levelText)); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: l.path, Err: fmt.Errorf("log_level 只能是 debug/info/warn/error，实际是 %q", levelText)}
		}
	}

	// report：--report[=PATH] > config > 默认关闭；给了路径即视为开启。
	report := fc.Report
	reportPath := ""
	if strings.TrimSpace(fc.ReportPath) != "" {
		reportPath = absCleanFrom(cfgDir, fc.ReportPath)
	}
	if cli.ReportSet {
		report = cli.Report
	}
	if strings.TrimSpace(cli.ReportPath) != "" {
		report = true
		reportPath = absCleanFrom(cwdAbs, cli.ReportPath)
	}
	if reportPath == "" {
		reportPath = DefaultReportPath()
	}

	var exclude []string
	for _, x := range fc.ExcludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		// 相对路径原样保留，由扫描器按 source 解析。
		exclude = append(exclude, filepath.Clean(x))
	}

	return EffectiveConfig{
		Source:      source,
		Destination: dest,
		Apply:       apply,
		ExcludeDirs: exclude,
		LogLevel:    level,
		Report:      report,
		ReportPath:  reportPath,
		ConfigFile:  l.path,
	}, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (l loaded, exists bool, err error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return loaded{}, false, nil
		}
		return loaded{}, false, err
	}
	if fi.IsDir() {
		return loaded{}, true, fmt.Errorf("是目录，不是文件")
	}

	var fc FileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return loaded{}, true, err
	}

	defined := make(map[string]bool)
	for _, k := range md.Keys() {
		defined[k.String()] = true
	}
	return loaded{path: path, fc: fc, defined: defined}, true, nil
}
