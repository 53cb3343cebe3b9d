package main

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary  = lipgloss.Color("#7C3AED") // Purple
	colorSuccess  = lipgloss.Color("#10B981") // Green
	colorError    = lipgloss.Color("#EF4444") // Red
	colorTextDim  = lipgloss.Color("#6B7280") // Dark gray
	colorTextBody = lipgloss.Color("#E5E7EB") // Light gray
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	idStyle       = lipgloss.NewStyle().Foreground(colorTextBody).Width(12)
	nameStyle     = lipgloss.NewStyle().Foreground(colorTextBody).Width(14)
	kindStyle     = lipgloss.NewStyle().Foreground(colorTextDim).Width(13)
	dimStyle      = lipgloss.NewStyle().Foreground(colorTextDim)
	finishedStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	abortedStyle  = lipgloss.NewStyle().Foreground(colorError)
)
