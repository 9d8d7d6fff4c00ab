package controller

import (
	"bytes"
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "gooze.dev/pkg/testbench/internal/model"
)

func update(t *testing.T, model tea.Model, msgs ...tea.Msg) (runModel, tea.Cmd) {
	t.Helper()

	var cmd tea.Cmd

	for _, msg := range msgs {
		model, cmd = model.Update(msg)
	}

	r, ok := model.(runModel)
	require.True(t, ok)

	return r, cmd
}

func TestRunModel_TracksProgress(t *testing.T) {
	model := newRunModel(newStartConfig([]StartOption{WithRunMode(2)}))

	r, cmd := update(t, model,
		programStartedMsg{program: "p1", index: 1, total: 2},
		outcomeMsg{Unit: "app.Account", Index: 1, Status: m.Killed},
		outcomeMsg{Unit: "app.Account", Index: 2, Status: m.Alive},
		programResultMsg{Program: "p1", Faults: 2},
	)
	assert.Nil(t, cmd)

	assert.Equal(t, 1, r.finished)
	assert.Equal(t, 1, r.statuses[m.Killed])
	assert.Equal(t, 1, r.statuses[m.Alive])
	assert.InDelta(t, 0.5, r.ratio(), 1e-9)

	view := r.View()
	assert.Contains(t, view, "p1 (1/2)")
	assert.Contains(t, view, "1/2 programs")
	assert.Contains(t, view, "mutant app.Account#2 -> alive")
	assert.Contains(t, view, "p1: faults 2")
	assert.Contains(t, view, "press q to quit")
}

func TestRunModel_KeepsRecentOutcomes(t *testing.T) {
	model := newRunModel(newStartConfig([]StartOption{WithRunMode(1)}))

	var msgs []tea.Msg
	for i := 1; i <= recentOutcomes+3; i++ {
		msgs = append(msgs, outcomeMsg{Unit: "u", Index: i, Status: m.Killed})
	}

	r, _ := update(t, model, msgs...)

	assert.Len(t, r.recent, recentOutcomes)
	assert.Contains(t, r.recent[0], "u#4")
	assert.Equal(t, recentOutcomes+3, r.statuses[m.Killed])
}

func TestRunModel_FailedProgramAndText(t *testing.T) {
	model := newRunModel(newStartConfig([]StartOption{WithViewMode()}))

	r, _ := update(t, model,
		programResultMsg{Program: "p9", Err: errors.New("boom")},
		textMsg("a table"),
	)

	view := r.View()
	assert.Contains(t, view, "program p9 failed: boom")
	assert.Contains(t, view, "a table")
	assert.NotContains(t, view, "programs")
}

func TestRunModel_Quit(t *testing.T) {
	for _, msg := range []tea.Msg{
		finishedMsg{},
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")},
		tea.KeyMsg{Type: tea.KeyCtrlC},
	} {
		r, cmd := update(t, newRunModel(StartConfig{}), msg)

		assert.True(t, r.done)
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
		assert.NotContains(t, r.View(), "press q")
	}
}

func TestRunModel_WindowSize(t *testing.T) {
	r, _ := update(t, newRunModel(StartConfig{}), tea.WindowSizeMsg{Width: 200, Height: 40})
	assert.Equal(t, 60, r.progress.Width)

	r, _ = update(t, r, tea.WindowSizeMsg{Width: 15, Height: 40})
	assert.Equal(t, 10, r.progress.Width)
}

func TestTUI_NotStartedIsNoop(t *testing.T) {
	ui := NewTUI(&bytes.Buffer{}, &bytes.Buffer{})
	ctx := context.Background()

	ui.DisplayProgramStarted(ctx, "p", 1, 1)
	ui.DisplayMutantOutcome(ctx, m.MutantOutcome{})
	require.NoError(t, ui.DisplayMutantCounts(ctx, nil))
	ui.Wait(ctx)
	ui.Close(ctx)
}

func TestTUI_StartCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, NewTUI(&bytes.Buffer{}, &bytes.Buffer{}).Start(ctx))
}
