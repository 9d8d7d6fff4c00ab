package controller

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"gooze.dev/pkg/testbench/internal/adapter"
	"gooze.dev/pkg/testbench/internal/coverage"
	m "gooze.dev/pkg/testbench/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	statusStyles = map[m.MutantStatus]lipgloss.Style{
		m.Killed:       lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		m.Alive:        lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		m.Inconclusive: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		m.NotExecuted:  faintStyle,
	}
)

func formatStatus(status m.MutantStatus) string {
	if style, ok := statusStyles[status]; ok {
		return style.Render(status.String())
	}

	return status.String()
}

// SimpleUI implements UI using cobra Command's output.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := newStartConfig(options)
	if cfg.mode == ModeRun {
		s.printf("Running %d program(s)\n", cfg.programs)
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(context.Context) {}

// Wait returns immediately; SimpleUI never blocks.
func (s *SimpleUI) Wait(context.Context) {}

// DisplayMutantCounts prints the mutants of every target unit.
func (s *SimpleUI) DisplayMutantCounts(ctx context.Context, counts []MutantCount) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderCountsTable(counts))

	return nil
}

// DisplayProgramStarted shows which program is about to run.
func (s *SimpleUI) DisplayProgramStarted(ctx context.Context, program string, index, total int) {
	if ctx.Err() != nil {
		return
	}

	s.printf("%s %s (%d/%d)\n", titleStyle.Render("Program"), program, index, total)
}

// DisplayMutantOutcome shows one classified mutant.
func (s *SimpleUI) DisplayMutantOutcome(ctx context.Context, outcome m.MutantOutcome) {
	if ctx.Err() != nil {
		return
	}

	s.printf("  mutant %s#%d -> %s\n", outcome.Unit, outcome.Index, formatStatus(outcome.Status))
}

// DisplayProgramResult shows the coverage and unit reports of a program.
func (s *SimpleUI) DisplayProgramResult(ctx context.Context, result ProgramResult) {
	if ctx.Err() != nil {
		return
	}

	if result.Err != nil {
		s.printf("  %s\n", errorStyle.Render(fmt.Sprintf("program %s failed: %v", result.Program, result.Err)))

		return
	}

	s.printf("  faults: %d, coverage: %s\n", result.Faults, describeCoverage(result.Coverage))

	if len(result.Reports) > 0 {
		s.printf("%s", renderReportsTable(result.Reports))
	}
}

// DisplaySummary prints the run totals.
func (s *SimpleUI) DisplaySummary(ctx context.Context, summary Summary) {
	if ctx.Err() != nil {
		return
	}

	s.printf("\n%s", renderSummary(summary))
}

// DisplayRun prints a stored run.
func (s *SimpleUI) DisplayRun(ctx context.Context, run adapter.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderRun(run))

	return nil
}

func (s *SimpleUI) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func newTable(buf *bytes.Buffer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(buf)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)

	return table
}

func renderCountsTable(counts []MutantCount) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Program", "Unit", "Mutants"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	total := 0

	for _, c := range counts {
		mutants := fmt.Sprintf("%d", c.Mutants)
		if c.Err != nil {
			mutants = "error: " + c.Err.Error()
		} else {
			total += c.Mutants
		}

		table.Append([]string{c.Program, c.Unit, mutants})
	}

	table.SetFooter([]string{fmt.Sprintf("Total units %d", len(counts)), "", fmt.Sprintf("%d", total)})
	table.Render()

	return buf.String()
}

func renderReportsTable(reports []m.UnitReport) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Program", "Unit", "Status", "Killed", "Alive", "Inconclusive", "Not executed", "Score"})

	for _, r := range reports {
		if r.Status != m.UnitAnalyzed {
			table.Append([]string{r.Program, r.Unit, r.Status.String() + ": " + r.Reason, "", "", "", "", ""})

			continue
		}

		single := coverage.MutationSingleFromReport(r)
		table.Append([]string{
			r.Program,
			r.Unit,
			r.Status.String(),
			fmt.Sprintf("%d", r.Count(m.Killed)),
			fmt.Sprintf("%d", r.Count(m.Alive)),
			fmt.Sprintf("%d", r.Count(m.Inconclusive)),
			fmt.Sprintf("%d", r.Count(m.NotExecuted)),
			fmt.Sprintf("%.2f%%", single.Quality()*100),
		})
	}

	table.Render()

	return buf.String()
}

func describeCoverage(set coverage.Set) string {
	if len(set) == 0 {
		return "none"
	}

	parts := make([]string, 0, len(set))
	for _, key := range set.Keys() {
		info := set[key]
		parts = append(parts, fmt.Sprintf("%s=%.2f", info.Name(), info.Quality()))
	}

	return strings.Join(parts, " ")
}

func renderSummary(summary Summary) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Summary") + "\n")

	var buf bytes.Buffer

	table := newTable(&buf, []string{"Coverage", "Quality"})

	for _, key := range summary.Coverage.Keys() {
		info := summary.Coverage[key]
		table.Append([]string{info.Name(), fmt.Sprintf("%.2f", info.Quality())})
	}

	table.Render()
	b.WriteString(buf.String())

	statuses := []m.MutantStatus{m.Killed, m.Alive, m.Inconclusive, m.NotExecuted}
	for _, status := range statuses {
		fmt.Fprintf(&b, "%s: %d  ", formatStatus(status), summary.Statuses[status])
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Mutation score: %.2f%%\n", summary.Score()*100)

	if summary.RunID != "" {
		fmt.Fprintf(&b, "Run %s saved (%d/%d programs kept)\n", summary.RunID, summary.Kept, summary.Programs)
	}

	return b.String()
}

func renderRun(run adapter.Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s (%s)\n", titleStyle.Render("Run"), run.ID, run.Started.Format(time.RFC3339))

	keys := map[string]string{}
	for _, p := range run.Programs {
		for key, info := range p.Coverage {
			keys[key] = info.Name()
		}
	}

	sorted := make([]string, 0, len(keys))
	for key := range keys {
		sorted = append(sorted, key)
	}

	sort.Strings(sorted)

	header := []string{"Program", "Kept"}
	for _, key := range sorted {
		header = append(header, keys[key])
	}

	var buf bytes.Buffer

	table := newTable(&buf, header)

	for _, p := range run.Programs {
		row := []string{p.Program, fmt.Sprintf("%t", p.Kept)}

		for _, key := range sorted {
			cell := "-"
			if info, ok := p.Coverage[key]; ok {
				cell = fmt.Sprintf("%.2f", info.Quality())
			}

			row = append(row, cell)
		}

		table.Append(row)
	}

	table.Render()
	b.WriteString(buf.String())

	if len(run.Reports) > 0 {
		b.WriteString("\n")
		b.WriteString(renderReportsTable(run.Reports))
	}

	return b.String()
}
