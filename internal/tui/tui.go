package tui

import (
	"docuchat/internal/client"

	tea "github.com/charmbracelet/bubbletea"
)

// Config holds settings passed from the CLI layer.
type Config struct {
	ServerURL string
}

// Run starts the terminal chat against the given server.
func Run(cfg Config) error {
	c := client.New(cfg.ServerURL)
	p := tea.NewProgram(newChatModel(c), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
