package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/vspirv/errors"
)

var (
	okStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#90EE90"))

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	detailStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(lipgloss.Color("#FAFAFA"))
)

// reporter prints build outcomes, styled only when writing to a terminal.
type reporter struct {
	out, errOut io.Writer
	styled      bool
}

func newReporter(out, errOut *os.File) *reporter {
	return &reporter{
		out:    out,
		errOut: errOut,
		styled: term.IsTerminal(int(out.Fd())) && term.IsTerminal(int(errOut.Fd())),
	}
}

func (r *reporter) render(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

// failure prints every collected failure, not only the first.
func (r *reporter) failure(err error) {
	failures := []error{err}
	var agg *errors.AggregateError
	if stderrors.As(err, &agg) {
		failures = agg.Errors()
	}
	fmt.Fprintf(r.errOut, "%s %d error(s)\n", r.render(failStyle, "FAILED"), len(failures))
	for _, f := range failures {
		fmt.Fprintln(r.errOut, r.render(detailStyle, "- "+f.Error()))
	}
}

func (r *reporter) success(variants int, paths []string, manifest string) {
	fmt.Fprintf(r.out, "%s %d variant(s), %d artifact(s)\n", r.render(okStyle, "OK"), variants, len(paths))
	fmt.Fprintln(r.out, r.render(pathStyle, manifest))
}
