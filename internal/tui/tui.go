package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/infopanel/internal/ipc"
)

// Run opens the interactive editor for the config at configPath, or the
// default config when configPath is empty. It works offline; daemon actions
// report "daemon not connected" until one is running.
func Run(configPath string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	p := tea.NewProgram(newModel(configPath, ipc.NewClient()), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
