// Package tui renders upload progress as an interactive progress bar.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var descStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

// progressMsg reports transfer progress from the upload goroutine.
type progressMsg struct {
	offset uint64
	total  uint64
}

// doneMsg signals that the upload finished.
type doneMsg struct {
	err error
}

type uploadModel struct {
	progress    progress.Model
	description string
	offset      uint64
	total       uint64
	err         error
	done        bool
}

func newUploadModel(description string, total uint64) uploadModel {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
	)
	return uploadModel{
		progress:    p,
		description: description,
		total:       total,
	}
}

func (m uploadModel) Init() tea.Cmd {
	return nil
}

func (m uploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.offset = msg.offset
		m.total = msg.total
		return m, nil
	case doneMsg:
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		// The transfer has no internal cancel signal; ctrl-c abandons
		// the view while the command keeps the serial line until it
		// returns.
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m uploadModel) View() string {
	if m.done {
		return ""
	}
	percent := 0.0
	if m.total > 0 {
		percent = float64(m.offset) / float64(m.total)
	}
	counts := fmt.Sprintf("%d / %d bytes", m.offset, m.total)
	return descStyle.Render(m.description) + "\n" +
		m.progress.ViewAs(percent) + "  " + descStyle.Render(counts) + "\n"
}

// RunUpload drives run under a progress bar. run receives a report
// callback safe to call from its own goroutine; RunUpload returns run's
// error once it finishes.
func RunUpload(description string, total uint64, run func(report func(offset, total uint64)) error) error {
	p := tea.NewProgram(newUploadModel(description, total))

	errc := make(chan error, 1)
	go func() {
		err := run(func(offset, total uint64) {
			p.Send(progressMsg{offset: offset, total: total})
		})
		errc <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		// Rendering failed; the transfer outcome still decides.
		return <-errc
	}
	return <-errc
}
