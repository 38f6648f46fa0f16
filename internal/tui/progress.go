// internal/tui/progress.go
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/capeval/capeval/internal/util"
)

// stageStartMsg announces a new stage and its sample count.
type stageStartMsg struct {
	name  string
	total int
}

// sampleDoneMsg reports one completed sample within the current stage.
type sampleDoneMsg struct {
	index int
}

// stageDoneMsg reports the end of a stage.
type stageDoneMsg struct {
	name string
}

// progressModel is the Bubble Tea model backing the interactive display: a
// spinner beside the current stage name and a progress bar for its samples.
type progressModel struct {
	spinner   spinner.Model
	bar       progress.Model
	stage     string
	total     int
	completed int
	finished  []string
	width     int
}

func newProgressModel() progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return progressModel{
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient()),
		width:   80,
	}
}

// Init starts the spinner animation.
func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update advances the model for spinner ticks and pipeline progress messages.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 8
		return m, nil
	case stageStartMsg:
		m.stage = msg.name
		m.total = msg.total
		m.completed = 0
		return m, nil
	case sampleDoneMsg:
		m.completed++
		return m, nil
	case stageDoneMsg:
		m.finished = append(m.finished, msg.name)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	default:
		return m, nil
	}
}

// View renders the finished stages, the active stage line, and its bar.
func (m progressModel) View() string {
	doneStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	view := ""
	for _, name := range m.finished {
		view += doneStyle.Render("✓ "+name) + "\n"
	}
	if m.stage == "" {
		return view
	}
	view += fmt.Sprintf("%s %s [%d/%d]\n", m.spinner.View(), util.TruncateRunes(m.stage, 48), m.completed, m.total)
	view += m.bar.ViewAs(m.percent()) + "\n"
	return view
}

func (m progressModel) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.completed) / float64(m.total)
}

// ProgressReporter feeds pipeline events into a running Bubble Tea program.
type ProgressReporter struct {
	program *tea.Program
	done    chan struct{}
}

// NewProgressReporter starts the display in its own goroutine.
func NewProgressReporter() *ProgressReporter {
	r := &ProgressReporter{
		program: tea.NewProgram(newProgressModel()),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return r
}

// StageStart forwards the stage header to the display.
func (r *ProgressReporter) StageStart(name string, total int) {
	r.program.Send(stageStartMsg{name: name, total: total})
}

// SampleDone forwards one sample completion to the display.
func (r *ProgressReporter) SampleDone(index int) {
	r.program.Send(sampleDoneMsg{index: index})
}

// StageDone forwards the stage completion to the display.
func (r *ProgressReporter) StageDone(name string) {
	r.program.Send(stageDoneMsg{name: name})
}

// Stop shuts the display down and waits for the terminal to be restored.
func (r *ProgressReporter) Stop() {
	r.program.Quit()
	<-r.done
}
