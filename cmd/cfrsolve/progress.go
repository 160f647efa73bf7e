package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lox/cfrsolve/sdk/memory"
	"github.com/lox/cfrsolve/sdk/solver"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	critStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	logLines = 12
)

// progressMsg carries one training batch's report into the Bubble Tea
// update loop; progressDone signals the run finished (stopped or errored).
type progressMsg solver.IterationReport

type memoryMsg memory.Stats

type progressDone struct {
	report solver.TrainReport
	err    error
}

// progressModel renders a scrolling log of training progress over a
// viewport plus a one-line status header. It never drives the solve
// itself - it only receives reports pushed by the caller over
// progressCh/memoryCh/doneCh and redraws.
type progressModel struct {
	start      time.Time
	report     solver.IterationReport
	memStats   memory.Stats
	history    []string
	log        viewport.Model
	progressCh chan progressMsg
	memoryCh   chan memoryMsg
	doneCh     chan progressDone
	final      *progressDone
}

func newProgressModel(progressCh chan progressMsg, memoryCh chan memoryMsg, doneCh chan progressDone) progressModel {
	vp := viewport.New(80, logLines)
	return progressModel{
		start:      time.Now(),
		log:        vp,
		progressCh: progressCh,
		memoryCh:   memoryCh,
		doneCh:     doneCh,
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(waitForProgress(m.progressCh), waitForMemory(m.memoryCh), waitForDone(m.doneCh))
}

func waitForProgress(ch chan progressMsg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

func waitForMemory(ch chan memoryMsg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

func waitForDone(ch chan progressDone) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

func (m *progressModel) appendLine(line string) {
	m.history = append(m.history, line)
	if len(m.history) > 500 {
		m.history = m.history[len(m.history)-500:]
	}
	m.log.SetContent(strings.Join(m.history, "\n"))
	m.log.GotoBottom()
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.log.Width = msg.Width
		m.log.Height = msg.Height - 3
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	case progressMsg:
		m.report = solver.IterationReport(msg)
		m.appendLine(fmt.Sprintf("iteration=%-8d exploitability=%.6f infosets=%d",
			m.report.Iteration, m.report.Exploitability, m.report.StoreSize))
		return m, waitForProgress(m.progressCh)
	case memoryMsg:
		m.memStats = memory.Stats(msg)
		if m.memStats.Pruned > 0 {
			m.appendLine(fmt.Sprintf("pruned %d information sets (%s, %.2fGB used)",
				m.memStats.Pruned, m.memStats.Level, m.memStats.UsedGB))
		}
		return m, waitForMemory(m.memoryCh)
	case progressDone:
		m.final = &msg
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	elapsed := time.Since(m.start).Round(time.Second)
	if m.final != nil {
		if m.final.err != nil {
			return m.log.View() + "\n" + critStyle.Render(fmt.Sprintf("solve failed after %s: %v\n", elapsed, m.final.err))
		}
		return m.log.View() + "\n" + valueStyle.Render(fmt.Sprintf(
			"stopped after %s: iteration=%d stopping_reason=%s exploitability=%.6f\n",
			elapsed, m.final.report.Iterations, m.final.report.StopReason, m.final.report.Exploitability))
	}

	memLine := ""
	switch m.memStats.Level {
	case memory.LevelWarning:
		memLine = warnStyle.Render(fmt.Sprintf(" mem=%.2fGB(warning)", m.memStats.UsedGB))
	case memory.LevelCritical:
		memLine = critStyle.Render(fmt.Sprintf(" mem=%.2fGB(critical,pruned=%d)", m.memStats.UsedGB, m.memStats.Pruned))
	}

	header := fmt.Sprintf("%s %s  %s %s  %s %s%s",
		labelStyle.Render("elapsed"), valueStyle.Render(elapsed.String()),
		labelStyle.Render("iteration"), valueStyle.Render(fmt.Sprintf("%d", m.report.Iteration)),
		labelStyle.Render("exploitability"), valueStyle.Render(fmt.Sprintf("%.6f", m.report.Exploitability)),
		memLine,
	)
	return header + "\n" + m.log.View()
}
