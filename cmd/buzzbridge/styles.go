package main

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("238")).
			Padding(0, 1)

	deviceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	logStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	rawStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
)
