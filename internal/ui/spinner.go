package ui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Spinner shows progress for one long-running step. It animates only when
// styling is enabled and the output is a terminal; otherwise it prints one
// static line.
type Spinner struct {
	styles  *Styles
	w       io.Writer
	message string
	animate bool
}

func (s *Styles) NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{styles: s, w: w, message: message, animate: s.color && IsTerminal(w)}
}

type finishedMsg struct{}

type spinModel struct {
	spinner spinner.Model
	message string
	done    bool
}

func (m spinModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case finishedMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinModel) View() string {
	if m.done {
		return ""
	}
	return "  " + m.spinner.View() + " " + m.message
}

// Run calls fn while the spinner is shown and returns its error. An
// interrupt stops the animation and cancels the context passed to fn.
func (sp *Spinner) Run(ctx context.Context, fn func(context.Context) error) error {
	if !sp.animate {
		fmt.Fprintf(sp.w, "  %s...\n", sp.message)
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sm := spinner.New()
	sm.Spinner = spinner.MiniDot
	if sp.styles.Sym == asciiSymbols {
		sm.Spinner = spinner.Line
	}
	sm.Style = sp.styles.accent

	p := tea.NewProgram(spinModel{spinner: sm, message: sp.message},
		tea.WithOutput(sp.w),
		tea.WithInput(nil),
		tea.WithContext(ctx),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- fn(ctx)
		p.Send(finishedMsg{})
	}()

	_, _ = p.Run()
	select {
	case err := <-errCh:
		return err
	default:
	}
	// The program stopped before fn finished, so it was interrupted or killed.
	cancel()
	return <-errCh
}

// Done prints the completion line for the step.
func (sp *Spinner) Done(detail string) {
	line := "  " + sp.styles.Success(sp.styles.Sym.Check) + " " + sp.message
	if detail != "" {
		line += " " + sp.styles.Dim(detail)
	}
	fmt.Fprintln(sp.w, line)
}
