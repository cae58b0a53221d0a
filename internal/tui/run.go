package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/explorer"
)

// Run shows the explorer full screen until the user quits or ctx is done.
// The explorer's scheduler must already be running.
func Run(ctx context.Context, ex *explorer.Explorer) error {
	p := tea.NewProgram(NewModel(ctx, ex), tea.WithAltScreen(), tea.WithContext(ctx))
	ex.OnNavigate(func(route string) {
		// Send blocks until the program reads the message.
		go p.Send(NavigateMsg{Route: route})
	})
	_, err := p.Run()
	if err == tea.ErrProgramKilled && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
