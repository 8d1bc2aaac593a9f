package console

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"lunarmonkeys/internal/logging"
)

// Run starts the console in the alternate screen and blocks until it exits.
func Run(opts Options) error {
	model := New(opts)

	popts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()}
	if opts.Context != nil {
		popts = append(popts, tea.WithContext(opts.Context))
	}

	p := tea.NewProgram(model, popts...)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run console: %w", err)
	}
	logging.UIDebug("Console exited")
	return nil
}
