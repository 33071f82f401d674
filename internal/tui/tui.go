package tui

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// ErrNotTerminal is returned by Run when stdin or stdout is redirected.
var ErrNotTerminal = errors.New("the editor needs an interactive terminal")

var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Run starts the editor and blocks until the user quits or ctx is done.
// It closes opts.State.
func Run(ctx context.Context, opts Options) error {
	if !isTerminal() {
		if opts.State != nil {
			_ = opts.State.Close()
		}
		return ErrNotTerminal
	}

	model := New(ctx, opts)
	defer model.Close()

	// Mouse capture stays off so the terminal keeps native text selection.
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		// Killed through ctx is a normal shutdown.
		if ctx.Err() != nil && !errors.Is(err, tea.ErrProgramPanic) {
			return nil
		}
		return fmt.Errorf("running editor: %w", err)
	}
	return nil
}
