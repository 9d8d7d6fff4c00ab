package controller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"gooze.dev/pkg/testbench/internal/adapter"
	m "gooze.dev/pkg/testbench/internal/model"
)

// recentOutcomes is how many mutant lines the run view keeps.
const recentOutcomes = 6

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	input  io.Reader
	output io.Writer

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(input io.Reader, output io.Writer) *TUI {
	return &TUI{input: input, output: output}
}

type (
	programStartedMsg struct {
		program      string
		index, total int
	}
	outcomeMsg       m.MutantOutcome
	programResultMsg ProgramResult
	textMsg          string
	finishedMsg      struct{}
)

// Start launches the Bubble Tea program.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program != nil {
		return fmt.Errorf("ui already started")
	}

	t.program = tea.NewProgram(newRunModel(newStartConfig(options)), tea.WithInput(t.input), tea.WithOutput(t.output))
	t.done = make(chan struct{})

	go func(p *tea.Program, done chan struct{}) {
		defer close(done)

		if _, err := p.Run(); err != nil {
			slog.Error("Failed to run terminal UI", "error", err)
		}
	}(t.program, t.done)

	return nil
}

func (t *TUI) send(msg tea.Msg) {
	t.mu.Lock()
	p := t.program
	t.mu.Unlock()

	if p != nil {
		p.Send(msg)
	}
}

func (t *TUI) await(ctx context.Context) {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if done == nil {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Close stops the program and restores the terminal.
func (t *TUI) Close(ctx context.Context) {
	t.mu.Lock()
	p := t.program
	t.mu.Unlock()

	if p == nil {
		return
	}

	p.Quit()
	t.await(ctx)
}

// Wait marks the run as finished and blocks until the program exits.
func (t *TUI) Wait(ctx context.Context) {
	t.send(finishedMsg{})
	t.await(ctx)
}

// DisplayMutantCounts implements UI.
func (t *TUI) DisplayMutantCounts(ctx context.Context, counts []MutantCount) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.send(textMsg(renderCountsTable(counts)))

	return nil
}

// DisplayProgramStarted implements UI.
func (t *TUI) DisplayProgramStarted(_ context.Context, program string, index, total int) {
	t.send(programStartedMsg{program: program, index: index, total: total})
}

// DisplayMutantOutcome implements UI.
func (t *TUI) DisplayMutantOutcome(_ context.Context, outcome m.MutantOutcome) {
	t.send(outcomeMsg(outcome))
}

// DisplayProgramResult implements UI.
func (t *TUI) DisplayProgramResult(_ context.Context, result ProgramResult) {
	t.send(programResultMsg(result))
}

// DisplaySummary implements UI.
func (t *TUI) DisplaySummary(_ context.Context, summary Summary) {
	t.send(textMsg(renderSummary(summary)))
}

// DisplayRun implements UI.
func (t *TUI) DisplayRun(ctx context.Context, run adapter.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.send(textMsg(renderRun(run)))

	return nil
}

// runModel is the Bubble Tea model shared by every mode.
type runModel struct {
	mode     StartMode
	total    int
	index    int
	finished int
	current  string
	statuses map[m.MutantStatus]int
	recent   []string
	blocks   []string
	spinner  spinner.Model
	progress progress.Model
	done     bool
}

func newRunModel(cfg StartConfig) runModel {
	return runModel{
		mode:     cfg.mode,
		total:    cfg.programs,
		statuses: map[m.MutantStatus]int{},
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40), progress.WithoutPercentage()),
	}
}

func (r runModel) Init() tea.Cmd {
	return r.spinner.Tick
}

func (r runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			r.done = true

			return r, tea.Quit
		}
	case tea.WindowSizeMsg:
		r.progress.Width = min(max(msg.Width-20, 10), 60)
	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spinner, cmd = r.spinner.Update(msg)

		return r, cmd
	case programStartedMsg:
		r.current = msg.program
		r.index = msg.index
		r.total = msg.total
	case outcomeMsg:
		r.statuses[msg.Status]++
		r.recent = append(r.recent, fmt.Sprintf("mutant %s#%d -> %s", msg.Unit, msg.Index, formatStatus(msg.Status)))

		if len(r.recent) > recentOutcomes {
			r.recent = r.recent[len(r.recent)-recentOutcomes:]
		}
	case programResultMsg:
		r.finished++

		if msg.Err != nil {
			r.blocks = append(r.blocks, errorStyle.Render(fmt.Sprintf("program %s failed: %v", msg.Program, msg.Err)))
		} else {
			r.blocks = append(r.blocks, fmt.Sprintf("%s: faults %d, %s", msg.Program, msg.Faults, describeCoverage(msg.Coverage)))
		}
	case textMsg:
		r.blocks = append(r.blocks, string(msg))
	case finishedMsg:
		r.done = true

		return r, tea.Quit
	}

	return r, nil
}

func (r runModel) ratio() float64 {
	if r.total <= 0 {
		return 0
	}

	return float64(r.finished) / float64(r.total)
}

func (r runModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("testbench") + "\n\n")

	if r.mode == ModeRun {
		if !r.done && r.current != "" {
			fmt.Fprintf(&b, "%s %s (%d/%d)\n", r.spinner.View(), r.current, r.index, r.total)
		}

		fmt.Fprintf(&b, "%s %d/%d programs\n", r.progress.ViewAs(r.ratio()), r.finished, r.total)

		for _, status := range []m.MutantStatus{m.Killed, m.Alive, m.Inconclusive} {
			fmt.Fprintf(&b, "%s %d  ", formatStatus(status), r.statuses[status])
		}

		b.WriteString("\n")

		for _, line := range r.recent {
			b.WriteString(faintStyle.Render("  "+line) + "\n")
		}

		b.WriteString("\n")
	}

	for _, block := range r.blocks {
		b.WriteString(block)

		if !strings.HasSuffix(block, "\n") {
			b.WriteString("\n")
		}
	}

	if !r.done {
		b.WriteString(faintStyle.Render("press q to quit") + "\n")
	}

	return b.String()
}
