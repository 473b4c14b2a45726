// Package theme holds the TUI palette and shared lipgloss styles.
package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette, tuned for dark terminals.
var (
	Primary   = lipgloss.Color("#60A5FA") // Sky
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F59E0B") // Amber
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	BgDark    = lipgloss.Color("#0F172A") // Deep Navy
	BgCard    = lipgloss.Color("#1E293B") // Dark Slate
	BgCode    = lipgloss.Color("#111827")
	Border    = lipgloss.Color("#334155") // Slate
)

// Activity heat levels for the calendar, from none to busiest.
var Heat = []lipgloss.Style{
	lipgloss.NewStyle().Foreground(Border),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#0E7490")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#0891B2")),
	lipgloss.NewStyle().Foreground(Secondary),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#5EEAD4")),
}

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Align(lipgloss.Center)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim).
			Align(lipgloss.Center)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Label = lipgloss.NewStyle().
		Foreground(TextDim).
		Width(18)

	Value = lipgloss.NewStyle().
		Foreground(Text).
		Bold(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Background(BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)

	Modal = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Primary).
		Padding(1, 3).
		Align(lipgloss.Center)
)

// Code listing
var (
	Code = lipgloss.NewStyle().
		Foreground(Text).
		Background(BgCode)

	CodeHighlight = lipgloss.NewStyle().
			Foreground(BgDark).
			Background(Accent)

	CodeCursor = lipgloss.NewStyle().
			Foreground(Text).
			Background(Border)

	LineNumber = lipgloss.NewStyle().
			Foreground(TextDim).
			Background(BgCode)
)

// States
var (
	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Unselected = lipgloss.NewStyle().
			Foreground(Text)

	Locked = lipgloss.NewStyle().
		Foreground(Border)

	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)
)
