// Package styles provides the colour palette and shared styles of the chat UI.
package styles

import (
	"charm.land/lipgloss/v2"
)

// Color palette - ANSI 256 colors used throughout the application
var (
	ColorAccent = lipgloss.Color("141")

	ColorText       = lipgloss.Color("252")
	ColorTextMuted  = lipgloss.Color("245")
	ColorTextBright = lipgloss.Color("15")

	ColorError   = lipgloss.Color("196")
	ColorSuccess = lipgloss.Color("42")

	ColorPlaceholder = lipgloss.Color("240")
	ColorBorder      = lipgloss.Color("141")
	ColorBorderMuted = lipgloss.Color("62")
)

// Header and chrome
var (
	// HeaderStyle is the bar at the top of the chat window
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true)

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(ColorBorderMuted)

	// FooterStyle for footer/help text
	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true)
)

// Message styles
var (
	UserLabelStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	BotLabelStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	TextStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	// TypingStyle renders the pending-answer indicator
	TypingStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	PlaceholderStyle = lipgloss.NewStyle().
				Foreground(ColorPlaceholder).
				Italic(true)
)

// FallbackBoxStyle frames the screen shown after a render failure.
var FallbackBoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorError).
	Padding(1, 2)
