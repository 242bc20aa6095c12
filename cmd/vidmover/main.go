package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/vidmover/internal/app/run"
	"github.com/John-Robertt/vidmover/internal/config"
	"github.com/John-Robertt/vidmover/internal/domain"
	"github.com/John-Robertt/vidmover/internal/infra/reportstore"
	"github.com/John-Robertt/vidmover/internal/scan"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "run":
		if code := runCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	case "report":
		if code := reportCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage(os.Stdout)
			return 0
		}
	}

	ra, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRunUsage(os.Stdout)
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	cwdAbs, _ := filepath.Abs(cwd)

	eff, err := config.LoadEffective(cwd, ra.CLIArgs)
	if err != nil {
		rr := reportForConfigError(cwdAbs, ra, err)
		emitReport(rr)
		return 1
	}

	if ra.TUI {
		return runTUI(eff)
	}

	logger := newLogger(os.Stderr, eff.LogLevel)

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		ui := newProgressUI(progressW)
		defer ui.Close()
		obs = ui
	}

	rr := run.ExecuteWithObserver(context.Background(), eff, obs, run.WithLogger(logger))

	if eff.Report {
		if err := reportstore.New(eff.ReportPath, nil).Write(rr); err != nil {
			fmt.Fprintf(os.Stderr, "写入报告失败：%v\n", err)
			emitReport(rr)
			return 1
		}
	}

	emitReport(rr)
	if interactive {
		emitLocations(progressW, eff)
	}
	if rr.Failed() {
		return 1
	}
	return 0
}

// reportCmd 打印最近一次落盘的报告（需要运行时开启过 --report）。
func reportCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printReportUsage()
			return 0
		}
	}

	var cli config.CLIArgs
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--config":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "参数错误：--config 需要一个值")
				return 2
			}
			i++
			cli.ConfigFile = args[i]
		case strings.HasPrefix(a, "--config="):
			cli.ConfigFile = strings.TrimPrefix(a, "--config=")
		case strings.HasPrefix(a, "--report="):
			cli.ReportPath = strings.TrimPrefix(a, "--report=")
		default:
			fmt.Fprintf(os.Stderr, "参数错误：未知参数 %q\n\n", a)
			printReportUsage()
			return 2
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	rr, err := reportstore.New(eff.ReportPath, nil).Read()
	if err != nil {
		if errors.Is(err, reportstore.ErrNoReport) {
			fmt.Fprintf(os.Stderr, "尚无报告：%s（使用 vidmover run --report 生成）\n", eff.ReportPath)
		} else {
			fmt.Fprintf(os.Stderr, "读取报告失败：%v\n", err)
		}
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(rr)
	return 0
}

type runArgs struct {
	config.CLIArgs
	TUI bool
}

func parseRunArgs(args []string) (runArgs, error) {
	ra := runArgs{}

	// value 读取 "--flag VALUE" 形式的值。
	value := func(i *int, name string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s 需要一个值", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		a := args[i]
		var err error
		switch {
		case a == "--dest":
			ra.Destination, err = value(&i, a)
		case strings.HasPrefix(a, "--dest="):
			ra.Destination = strings.TrimPrefix(a, "--dest=")
		case a == "--config":
			ra.ConfigFile, err = value(&i, a)
		case strings.HasPrefix(a, "--config="):
			ra.ConfigFile = strings.TrimPrefix(a, "--config=")
		case a == "--log-level":
			ra.LogLevel, err = value(&i, a)
		case strings.HasPrefix(a, "--log-level="):
			ra.LogLevel = strings.TrimPrefix(a, "--log-level=")
		case a == "--apply":
			ra.Apply = true
			ra.ApplySet = true
		case strings.HasPrefix(a, "--apply="):
			v := strings.TrimPrefix(a, "--apply=")
			switch v {
			case "true":
				ra.Apply = true
			case "false":
				ra.Apply = false
			default:
				return runArgs{}, fmt.Errorf("--apply 只能是 true 或 false，实际是 %q", v)
			}
			ra.ApplySet = true
		case a == "--report":
			ra.Report = true
			ra.ReportSet = true
		case strings.HasPrefix(a, "--report="):
			// --report=true|false 是开关；其他值视为报告路径。
			switch v := strings.TrimPrefix(a, "--report="); v {
			case "true", "false":
				ra.Report = v == "true"
				ra.ReportSet = true
			case "":
				return runArgs{}, fmt.Errorf("--report= 需要路径或 true/false")
			default:
				ra.ReportPath = v
			}
		case a == "--tui":
			ra.TUI = true
		case strings.HasPrefix(a, "-"):
			return runArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if ra.Source != "" {
				return runArgs{}, fmt.Errorf("重复的 source：%q 与 %q", ra.Source, a)
			}
			ra.Source = a
		}
		if err != nil {
			return runArgs{}, err
		}
	}

	for _, f := range []struct{ name, v string }{
		{"--dest", ra.Destination},
		{"--config", ra.ConfigFile},
		{"--log-level", ra.LogLevel},
	} {
		if f.v != "" && strings.TrimSpace(f.v) == "" {
			return runArgs{}, fmt.Errorf("%s 不能为空", f.name)
		}
	}

	return ra, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  vidmover run [source] [--dest DIR] [--apply[=true|false]] [--tui]
  vidmover report [--config FILE] [--report=PATH]

命令：
  run     扫描 source 下的视频并移动到 destination（默认 dry-run）
  report  打印最近一次保存的报告

使用 "vidmover run --help" 查看详细说明。
`)
}

func printRunUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  vidmover run [source] [--dest DIR] [--apply[=true|false]] [--config FILE]
               [--report[=PATH]] [--tui] [--log-level LEVEL]

参数：
  source        要扫描的目录（未指定则读配置文件；最终默认当前目录）
  --dest        目标目录（默认 <source>/VIDEOS）；该目录及其子目录不会被扫描
  --apply       真正移动文件（默认 dry-run）；支持 --apply=false 覆盖配置中的 apply = true
  --config      指定配置文件（TOML）；未指定时依次查找 <source>/vidmover.toml、
                ./vidmover.toml、$XDG_CONFIG_HOME/vidmover/config.toml
  --report      保存报告到 $XDG_STATE_HOME/vidmover/report.json；--report=PATH 指定路径
  --tui         交互模式：扫描后列出文件，确认后移动并显示进度条
  --log-level   debug|info|warn|error（默认 warn）
  -h, --help    显示帮助
`)
	// 只按扩展名识别（大小写不敏感），不读取文件内容。
	fmt.Fprintf(w, "\n识别的视频扩展名：\n  %s\n", strings.Join(scan.VideoExtensions(), " "))
}

func printReportUsage() {
	fmt.Fprint(os.Stdout, `用法：
  vidmover report [--config FILE] [--report=PATH]

参数：
  --config    指定配置文件（用于读取 report_path）
  --report    报告路径（默认 $XDG_STATE_HOME/vidmover/report.json）
  -h, --help  显示帮助
`)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func summaryLine(rr domain.RunReport) string {
	return fmt.Sprintf("完成：found=%d planned=%d moved=%d failed=%d size=%s",
		rr.Summary.Found, rr.Summary.Planned, rr.Summary.Moved, rr.Summary.Failed,
		scan.FormatSize(rr.Summary.TotalBytes),
	)
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintln(os.Stdout, summaryLine(rr))
		emitFailures(os.Stderr, rr)
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintln(os.Stderr, summaryLine(rr))
}

func emitFailures(w io.Writer, rr domain.RunReport) {
	if rr.ErrorCode != "" {
		fmt.Fprintf(w, "%s: %s\n", rr.ErrorCode, rr.ErrorMsg)
	}
	for _, f := range rr.Files {
		if f.Status != domain.FileStatusFailed {
			continue
		}
		fmt.Fprintf(w, "%s %s: %s\n", f.Src, domain.ErrCodeMoveFailed, f.ErrorMsg)
	}
}

func reportForConfigError(cwdAbs string, ra runArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		Source:     cwdAbs,
		DryRun:     !(ra.ApplySet && ra.Apply),
		StartedAt:  now,
		FinishedAt: now,
		ErrorCode:  config.Code(err),
		ErrorMsg:   err.Error(),
	}
	rr.Finalize()
	return rr
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

func emitLocations(w io.Writer, eff config.EffectiveConfig) {
	if w == nil {
		return
	}
	if eff.Report {
		fmt.Fprintf(w, "report: %s\n", eff.ReportPath)
	}
	fmt.Fprintf(w, "dest: %s\n", eff.Destination)
}
