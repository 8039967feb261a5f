package tui

import (
	"babysteps/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

func Run(st store.Store) error {
	m := newAppModel(st)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
