// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/codeforge-dev/codeforge/services/forge/coordinate"
	"github.com/codeforge-dev/codeforge/services/forge/spec"
)

var (
	phaseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("35")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

var phaseLabels = []coordinate.Phase{
	coordinate.PhaseConfig, coordinate.PhaseSkeleton, coordinate.PhaseDetail,
	coordinate.PhaseAssemble, coordinate.PhaseValidate, coordinate.PhaseAutofix,
	coordinate.PhaseRevalidate, coordinate.PhaseRepair, coordinate.PhaseFinalValidate,
}

// phaseMsg is sent each time the Coordinator's ProgressFunc fires.
type phaseMsg coordinate.Phase

// resultMsg is sent once the background Generate call returns.
type resultMsg struct {
	result *spec.GenerationResult
	err    error
}

// progressModel renders a spinner plus a phase checklist while
// generate runs in the background, grounded on the reference diff review
// TUI's single-threaded bubbletea-event-loop shape (model holds plain
// fields, Update handles one message type at a time, no shared mutable
// state touched outside the loop).
type progressModel struct {
	spinner spinner.Model
	current coordinate.Phase
	done    bool
	result  *spec.GenerationResult
	err     error

	updates <-chan coordinate.Phase
	results <-chan resultMsg
}

func newProgressModel(updates <-chan coordinate.Phase, results <-chan resultMsg) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return progressModel{spinner: s, current: coordinate.PhaseConfig, updates: updates, results: results}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForPhase(m.updates), waitForResult(m.results))
}

func waitForPhase(ch <-chan coordinate.Phase) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return phaseMsg(p)
	}
}

func waitForResult(ch <-chan resultMsg) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return r
	}
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case phaseMsg:
		m.current = coordinate.Phase(msg)
		return m, waitForPhase(m.updates)
	case resultMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		if m.err != nil {
			return errStyle.Render(fmt.Sprintf("generation failed: %v\n", m.err))
		}
		return doneStyle.Render(fmt.Sprintf("generated %d files (request %s)\n", len(m.result.Files), m.result.RequestID))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s generating...\n\n", m.spinner.View())
	for _, p := range phaseLabels {
		marker := " "
		style := phaseStyle
		switch {
		case p == m.current:
			marker = m.spinner.View()
		case reachedBefore(p, m.current):
			marker = "✓"
			style = doneStyle
		}
		fmt.Fprintf(&b, "%s %s\n", marker, style.Render(string(p)))
	}
	return b.String()
}

// reachedBefore reports whether phase p sorts strictly before current in
// phaseLabels, so View can mark earlier phases complete.
func reachedBefore(p, current coordinate.Phase) bool {
	idx := func(target coordinate.Phase) int {
		for i, ph := range phaseLabels {
			if ph == target {
				return i
			}
		}
		return -1
	}
	ip, ic := idx(p), idx(current)
	return ip >= 0 && ic >= 0 && ip < ic
}
