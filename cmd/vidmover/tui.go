package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/John-Robertt/vidmover/internal/app/run"
	"github.com/John-Robertt/vidmover/internal/config"
	"github.com/John-Robertt/vidmover/internal/domain"
	"github.com/John-Robertt/vidmover/internal/infra/reportstore"
	"github.com/John-Robertt/vidmover/internal/move"
	"github.com/John-Robertt/vidmover/internal/scan"
)

type tuiState int

const (
	tuiScanning tuiState = iota
	tuiConfirm
	tuiMoving
	tuiDone
)

const maxErrLines = 5

var (
	tuiTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	tuiMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tuiErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	tuiOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	tuiPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type foundMsg struct{ file domain.VideoFile }

type scanDoneMsg struct {
	files []domain.VideoFile
	err   error
}

type moveProgressMsg struct{ done, total int }

type moveErrorMsg struct {
	path string
	err  error
}

type moveDoneMsg struct {
	res move.Result
	err error
}

// sender 把后台 goroutine 里的回调转交给 UI 循环；program 为空时丢弃（测试里直接驱动 Update）。
type sender struct{ p *tea.Program }

func (s *sender) Send(msg tea.Msg) {
	if s != nil && s.p != nil {
		s.p.Send(msg)
	}
}

// tuiObserver 把 move 的回调变成消息。
type tuiObserver struct{ send *sender }

func (o tuiObserver) OnProgress(done, total int) {
	o.send.Send(moveProgressMsg{done: done, total: total})
}

func (o tuiObserver) OnError(path string, err error) {
	o.send.Send(moveErrorMsg{path: path, err: err})
}

type tuiModel struct {
	ctx  context.Context
	sess *run.Session
	send *sender

	source, dest string

	state   tuiState
	spinner spinner.Model
	bar     progress.Model
	width   int
	height  int

	found      []domain.VideoFile
	totalBytes int64

	total  int
	moved  int
	failed int
	errs   []string

	cancelled bool
	err       error
}

func newTUIModel(ctx context.Context, sess *run.Session, send *sender) tuiModel {
	eff := sess.Config()
	return tuiModel{
		ctx:     ctx,
		sess:    sess,
		send:    send,
		source:  eff.Source,
		dest:    eff.Destination,
		state:   tuiScanning,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.scanCmd())
}

func (m tuiModel) scanCmd() tea.Cmd {
	sess, send, ctx := m.sess, m.send, m.ctx
	return func() tea.Msg {
		files, err := sess.Scan(ctx, func(f domain.VideoFile) { send.Send(foundMsg{file: f}) })
		return scanDoneMsg{files: files, err: err}
	}
}

func (m tuiModel) moveCmd() tea.Cmd {
	sess, send, ctx := m.sess, m.send, m.ctx
	return func() tea.Msg {
		res, err := sess.Move(ctx, tuiObserver{send: send})
		return moveDoneMsg{res: res, err: err}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.bar.Width = min(max(msg.Width-4, 10), 60)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.state != tuiScanning && m.state != tuiMoving {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case foundMsg:
		m.found = append(m.found, msg.file)
		m.totalBytes += msg.file.Size
		return m, nil

	case scanDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = tuiDone
			return m, nil
		}
		m.found = msg.files
		m.totalBytes = 0
		for _, f := range msg.files {
			m.totalBytes += f.Size
		}
		if len(m.found) == 0 {
			m.state = tuiDone
			return m, nil
		}
		m.state = tuiConfirm
		return m, nil

	case moveProgressMsg:
		m.moved, m.total = msg.done, msg.total
		return m, nil

	case moveErrorMsg:
		m.failed++
		m.errs = append(m.errs, fmt.Sprintf("%s: %v", filepath.Base(msg.path), msg.err))
		if len(m.errs) > maxErrLines {
			m.errs = m.errs[len(m.errs)-maxErrLines:]
		}
		return m, nil

	case moveDoneMsg:
		m.state = tuiDone
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.moved, m.failed = msg.res.Moved, msg.res.Failed
		return m, nil
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch m.state {
	case tuiScanning:
		if key == "ctrl+c" || key == "q" {
			m.cancelled = true
			return m, tea.Quit
		}
	case tuiConfirm:
		switch key {
		case "y", "Y", "enter":
			m.state = tuiMoving
			m.total = len(m.found)
			return m, tea.Batch(m.moveCmd(), m.spinner.Tick)
		case "n", "N", "esc", "q", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		}
	case tuiMoving:
		// 移动中忽略按键，直到完成。
	case tuiDone:
		return m, tea.Quit
	}
	return m, nil
}

func (m tuiModel) View() string {
	var b strings.Builder

	b.WriteString(tuiTitleStyle.Render("vidmover"))
	b.WriteString("\n")
	b.WriteString(tuiMutedStyle.Render(fmt.Sprintf("源目录：%s\n目标目录：%s", m.source, m.dest)))
	b.WriteString("\n\n")

	switch m.state {
	case tuiScanning:
		fmt.Fprintf(&b, "%s 正在扫描… 已发现 %d 个视频（%s）\n", m.spinner.View(), len(m.found), scan.FormatSize(m.totalBytes))
		b.WriteString(tuiMutedStyle.Render("q 取消"))

	case tuiConfirm:
		b.WriteString(tuiPanelStyle.Render(m.fileList()))
		b.WriteString("\n")
		fmt.Fprintf(&b, "找到 %d 个视频文件，共 %s\n", len(m.found), scan.FormatSize(m.totalBytes))
		fmt.Fprintf(&b, "确认移动到 %s？%s", m.dest, tuiMutedStyle.Render("[y/N]"))

	case tuiMoving:
		frac := 0.0
		if m.total > 0 {
			frac = float64(m.moved+m.failed) / float64(m.total)
		}
		b.WriteString(m.bar.ViewAs(frac))
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s 已移动 %d / %d，失败 %d\n", m.spinner.View(), m.moved, m.total, m.failed)
		m.writeErrors(&b)

	case tuiDone:
		switch {
		case m.err != nil:
			b.WriteString(tuiErrorStyle.Render(m.err.Error()))
		case len(m.found) == 0:
			b.WriteString("未找到视频文件")
		default:
			line := fmt.Sprintf("移动完成：成功 %d，失败 %d，共 %s", m.moved, m.failed, scan.FormatSize(m.totalBytes))
			if m.failed > 0 {
				b.WriteString(tuiErrorStyle.Render(line))
			} else {
				b.WriteString(tuiOKStyle.Render(line))
			}
			b.WriteString("\n")
			m.writeErrors(&b)
		}
		b.WriteString("\n")
		b.WriteString(tuiMutedStyle.Render("按任意键退出"))
	}

	return b.String()
}

// fileList 渲染文件列表；终端太矮时只显示前若干条。
func (m tuiModel) fileList() string {
	limit := len(m.found)
	if m.height > 0 {
		limit = min(limit, max(m.height-12, 5))
	}

	var b strings.Builder
	for i, f := range m.found[:limit] {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s  %s  %s", f.Name, tuiMutedStyle.Render(f.RelPath), scan.FormatSize(f.Size))
	}
	if rest := len(m.found) - limit; rest > 0 {
		b.WriteString("\n")
		b.WriteString(tuiMutedStyle.Render(fmt.Sprintf("… 还有 %d 个", rest)))
	}
	return b.String()
}

func (m tuiModel) writeErrors(b *strings.Builder) {
	for _, e := range m.errs {
		b.WriteString(tuiErrorStyle.Render("✗ " + e))
		b.WriteString("\n")
	}
}

// runTUI 运行交互模式：扫描 -> 列表 + 统计 -> 确认 -> 带进度条移动。
// 确认本身就是执行开关，因此这里不看 --apply。
func runTUI(eff config.EffectiveConfig) int {
	if !isTTY(os.Stdin) || !isTTY(os.Stdout) {
		fmt.Fprintln(os.Stderr, "--tui 需要交互终端（TTY）")
		return 2
	}
	eff.Apply = true

	logger, closeLog := openTUILogger(eff.LogLevel)
	defer closeLog()

	sess := run.NewSession(eff, run.WithLogger(logger))
	if err := sess.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	send := &sender{}
	p := tea.NewProgram(newTUIModel(context.Background(), sess, send), tea.WithAltScreen())
	send.p = p

	final, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "界面运行失败：%v\n", err)
		return 1
	}
	fm, _ := final.(tuiModel)
	if fm.cancelled {
		fmt.Fprintln(os.Stdout, "已取消，未移动任何文件")
		return 0
	}

	rr := sess.Report()
	if eff.Report {
		if err := reportstore.New(eff.ReportPath, nil).Write(rr); err != nil {
			fmt.Fprintf(os.Stderr, "写入报告失败：%v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "report: %s\n", eff.ReportPath)
	}
	fmt.Fprintln(os.Stdout, summaryLine(rr))
	emitFailures(os.Stderr, rr)
	if rr.Failed() {
		return 1
	}
	return 0
}

// openTUILogger 把日志写到 $XDG_STATE_HOME/vidmover/vidmover.log，避免撕裂全屏界面。
func openTUILogger(level slog.Level) (*slog.Logger, func()) {
	path := config.DefaultLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return newLogger(io.Discard, level), func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return newLogger(io.Discard, level), func() {}
	}
	return newLogger(f, level), func() { _ = f.Close() }
}
