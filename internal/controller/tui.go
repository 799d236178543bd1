package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	m "gooze.dev/pkg/poison/internal/model"
	"golang.org/x/term"
)

const recentReports = 8

var (
	cleanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	poisonedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	faintStyle    = lipgloss.NewStyle().Faint(true)
	titleStyle    = lipgloss.NewStyle().Bold(true)
)

// TUI implements UI using Bubble Tea for interactive display.
// Check and audit runs show a live progress view; tables are paged when they
// do not fit on screen.
type TUI struct {
	output io.Writer

	mu      sync.Mutex
	mode    StartMode
	program *tea.Program
	done    chan struct{}
	pending []string
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

type fileCleanMsg struct{ path m.Path }

type importsMsg struct{ count int }

type unresolvedMsg struct{ importPath string }

type targetsMsg struct{ count, threads int }

type reportMsg struct{ report m.Report }

type stopMsg struct{}

// Start initializes the UI. Check and audit modes launch the progress view.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := &StartConfig{}
	for _, opt := range options {
		opt(cfg)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.mode = cfg.mode
	t.pending = nil

	if cfg.mode != ModeCheck && cfg.mode != ModeAudit {
		return nil
	}

	// Input stays with the terminal so Ctrl-C reaches the signal handler.
	t.program = tea.NewProgram(newProgressModel(cfg.mode), tea.WithOutput(t.output), tea.WithInput(nil))
	t.done = make(chan struct{})

	go func(program *tea.Program, done chan struct{}) {
		defer close(done)

		_, _ = program.Run()
	}(t.program, t.done)

	return nil
}

// Close stops the progress view and prints anything rendered while it ran.
func (t *TUI) Close(_ context.Context) {
	t.mu.Lock()
	program, done, pending := t.program, t.done, t.pending
	t.program, t.done, t.pending = nil, nil, nil
	t.mu.Unlock()

	if program != nil {
		program.Send(stopMsg{})
		<-done
	}

	for _, text := range pending {
		_, _ = fmt.Fprint(t.output, text)
	}
}

// Wait blocks until the UI is closed. Paged views block inside their display call.
func (t *TUI) Wait(_ context.Context) {}

// DisplayFileClean counts a scanned file.
func (t *TUI) DisplayFileClean(_ context.Context, path m.Path) {
	t.send(fileCleanMsg{path: path})
}

// DisplayImports counts the imports found in a file.
func (t *TUI) DisplayImports(_ context.Context, _ m.Path, imports m.ImportOccurrence) {
	t.send(importsMsg{count: len(imports)})
}

// DisplayResolution notes imports without inspectable source.
func (t *TUI) DisplayResolution(_ context.Context, resolution m.Resolution) {
	if resolution.Resolved() {
		return
	}

	t.send(unresolvedMsg{importPath: resolution.ImportPath})
}

// DisplayTargets sets the audit totals.
func (t *TUI) DisplayTargets(_ context.Context, targets []m.Path, threads int) {
	t.send(targetsMsg{count: len(targets), threads: threads})
}

// DisplayReport records the outcome of one target.
func (t *TUI) DisplayReport(_ context.Context, report m.Report) {
	t.send(reportMsg{report: report})
}

// DisplaySummary shows a table of reports.
func (t *TUI) DisplaySummary(ctx context.Context, reports []m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return t.show(titleStyle.Render("Poison reports") + "\n\n" + renderSummaryTable(reports))
}

// DisplayImportTable shows how each import of path resolves.
func (t *TUI) DisplayImportTable(ctx context.Context, path m.Path, rows []ImportRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return t.show(titleStyle.Render("Imports of "+string(path)) + "\n\n" + renderImportTable(rows))
}

func (t *TUI) send(msg tea.Msg) {
	t.mu.Lock()
	program := t.program
	t.mu.Unlock()

	if program != nil {
		program.Send(msg)
	}
}

// show prints text once the progress view is gone, paging it when it is
// taller than the terminal.
func (t *TUI) show(text string) error {
	t.mu.Lock()
	if t.program != nil {
		t.pending = append(t.pending, "\n"+text)
		t.mu.Unlock()

		return nil
	}
	t.mu.Unlock()

	pager := newPagerModel(strings.Split(strings.TrimRight(text, "\n"), "\n"))

	if f, ok := t.output.(*os.File); ok {
		width, height, err := term.GetSize(int(f.Fd()))
		if err == nil {
			pager.height = height
			pager.width = width
		}
	}

	if !pager.needsPagination() {
		_, err := fmt.Fprintln(t.output, text)
		return err
	}

	program := tea.NewProgram(pager, tea.WithOutput(t.output), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

// progressModel is the Bubble Tea model of a running check or audit.
type progressModel struct {
	spinner    spinner.Model
	mode       StartMode
	current    m.Path
	scanned    int
	imports    int
	unresolved int
	targets    int
	threads    int
	finished   int
	poisoned   int
	failed     int
	recent     []string
	stopped    bool
}

func newProgressModel(mode StartMode) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = faintStyle

	return progressModel{spinner: s, mode: mode}
}

func (pm progressModel) Init() tea.Cmd {
	return pm.spinner.Tick
}

//nolint:cyclop // One case per progress message.
func (pm progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case fileCleanMsg:
		pm.current = msg.path
		pm.scanned++
	case importsMsg:
		pm.imports += msg.count
	case unresolvedMsg:
		pm.unresolved++
	case targetsMsg:
		pm.targets = msg.count
		pm.threads = msg.threads
	case reportMsg:
		pm = pm.withReport(msg.report)
	case stopMsg:
		pm.stopped = true
		return pm, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		pm.spinner, cmd = pm.spinner.Update(msg)

		return pm, cmd
	}

	return pm, nil
}

func (pm progressModel) withReport(report m.Report) progressModel {
	pm.finished++

	switch report.Status {
	case m.StatusViolation:
		pm.poisoned++
	case m.StatusError:
		pm.failed++
	case m.StatusClean:
	}

	recent := append([]string{}, pm.recent...)
	recent = append(recent, styledReportLine(report))

	if len(recent) > recentReports {
		recent = recent[len(recent)-recentReports:]
	}

	pm.recent = recent

	return pm
}

func (pm progressModel) View() string {
	var b strings.Builder

	if pm.mode == ModeAudit {
		fmt.Fprintf(&b, "Targets %d/%d  poisoned %d  errors %d  workers %d\n",
			pm.finished, pm.targets, pm.poisoned, pm.failed, pm.threads)
	}

	if pm.mode == ModeCheck || !pm.stopped {
		fmt.Fprintf(&b, "Files clean %d  imports %d  without source %d\n", pm.scanned, pm.imports, pm.unresolved)
	}

	for _, line := range pm.recent {
		b.WriteString(line + "\n")
	}

	if !pm.stopped {
		fmt.Fprintf(&b, "%s %s\n", pm.spinner.View(), faintStyle.Render(string(pm.current)))
	}

	return b.String()
}

func styledReportLine(report m.Report) string {
	line := reportLine(report)

	switch report.Status {
	case m.StatusViolation:
		return poisonedStyle.Render(line)
	case m.StatusError:
		return errorStyle.Render(line)
	case m.StatusClean:
	}

	return cleanStyle.Render(line)
}

// pagerModel pages pre-rendered lines.
type pagerModel struct {
	lines    []string
	height   int
	width    int
	offset   int // Current scroll offset
	quitting bool
}

func newPagerModel(lines []string) pagerModel {
	return pagerModel{lines: lines}
}

func (pg pagerModel) Init() tea.Cmd {
	return nil
}

func (pg pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		pg.height = msg.Height
		pg.width = msg.Width

		return pg, nil

	case tea.KeyMsg:
		return pg.handleKeyPress(msg)
	}

	return pg, nil
}

//nolint:cyclop,exhaustive // Key handling requires multiple cases for UI navigation
func (pg pagerModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		pg.quitting = true
		return pg, tea.Quit
	default:
		// Handle other key types in the string switch below
	}

	switch msg.String() {
	case "q":
		pg.quitting = true
		return pg, tea.Quit

	case "down", "j":
		pg.offset = pg.clamp(pg.offset + 1)
	case "up", "k":
		pg.offset = pg.clamp(pg.offset - 1)
	case "g", "home":
		pg.offset = 0
	case "G", "end":
		pg.offset = pg.maxOffset()
	case "d", "pgdown":
		pg.offset = pg.clamp(pg.offset + pg.itemsPerPage())
	case "u", "pgup":
		pg.offset = pg.clamp(pg.offset - pg.itemsPerPage())
	}

	return pg, nil
}

func (pg pagerModel) clamp(offset int) int {
	if offset < 0 {
		return 0
	}

	return min(offset, pg.maxOffset())
}

// itemsPerPage calculates how many lines fit on screen.
func (pg pagerModel) itemsPerPage() int {
	if pg.height == 0 {
		return 10 // Default
	}
	// Reserve space for the footer: empty line, page line, help line.
	reserved := 3

	available := pg.height - reserved
	if available < 1 {
		return 1
	}

	return available
}

// maxOffset returns the maximum scroll offset.
func (pg pagerModel) maxOffset() int {
	maxOff := len(pg.lines) - pg.itemsPerPage()
	if maxOff < 0 {
		return 0
	}

	return maxOff
}

// needsPagination returns true if the text is too tall to fit on screen.
func (pg pagerModel) needsPagination() bool {
	return pg.height > 0 && len(pg.lines) > pg.itemsPerPage()
}

func (pg pagerModel) View() string {
	if pg.quitting {
		return ""
	}

	var b strings.Builder

	perPage := pg.itemsPerPage()
	start := pg.clamp(pg.offset)
	end := min(start+perPage, len(pg.lines))

	for _, line := range pg.lines[start:end] {
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")

	currentPage := (start / perPage) + 1
	totalPages := (len(pg.lines) + perPage - 1) / perPage
	fmt.Fprintf(&b, "  Page %d/%d | Showing %d-%d of %d\n", currentPage, totalPages, start+1, end, len(pg.lines))
	b.WriteString(faintStyle.Render("  ↑/k: up | ↓/j: down | g: top | G: bottom | q: quit") + "\n")

	return b.String()
}
