package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/vspirv/variant"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type variantDoneMsg variant.Event

type buildDoneMsg struct {
	err   error
	paths []string
}

type buildModel struct {
	spinner  spinner.Model
	results  map[string]variant.Event
	err      error
	names    []string
	finished int
	done     bool
}

func newBuildModel(variants []variant.Description) *buildModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = nameStyle

	names := make([]string, len(variants))
	for i, d := range variants {
		names[i] = d.Name
	}
	return &buildModel{
		spinner: s,
		names:   names,
		results: make(map[string]variant.Event),
	}
}

func (m *buildModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *buildModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case variantDoneMsg:
		m.results[msg.Variant] = variant.Event(msg)
		m.finished++

	case buildDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *buildModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("vspirv"))
	b.WriteString(fmt.Sprintf(" %d/%d variants\n\n", m.finished, len(m.names)))

	for _, name := range m.names {
		res, ok := m.results[name]
		switch {
		case !ok:
			b.WriteString(m.spinner.View())
			b.WriteString(" " + name)
		case res.Err != nil:
			b.WriteString(errorStyle.Render("✗ " + name))
		default:
			b.WriteString(nameStyle.Render("✓ "+name) + fmt.Sprintf(" (%d files)", len(res.Paths)))
		}
		b.WriteString("\n")
	}

	switch {
	case !m.done:
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("q cancel"))
		b.WriteString("\n")
	case m.err != nil:
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("build finished with errors"))
		b.WriteString("\n")
	}
	return b.String()
}

// runInteractive builds variants while rendering per-variant progress.
// Quitting the view cancels the build and waits for running variants.
func runInteractive(ctx context.Context, b *variant.Builder, variants []variant.Description, jobs int) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newBuildModel(variants))
	results := make(chan buildDoneMsg, 1)
	go func() {
		paths, err := b.CompileAllNotify(ctx, variants, jobs, func(e variant.Event) {
			p.Send(variantDoneMsg(e))
		})
		msg := buildDoneMsg{paths: paths, err: err}
		results <- msg
		p.Send(msg)
	}()

	_, runErr := p.Run()
	cancel()
	res := <-results
	if runErr != nil {
		return res.paths, runErr
	}
	return res.paths, res.err
}
