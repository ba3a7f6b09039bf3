package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent  = lipgloss.Color("39")
	subtle  = lipgloss.Color("245")
	faint   = lipgloss.Color("240")
	success = lipgloss.Color("34")
	warning = lipgloss.Color("214")
	failure = lipgloss.Color("196")
)

// Report styles.
var (
	SuccessStyle = lipgloss.NewStyle().Foreground(success)
	WarningStyle = lipgloss.NewStyle().Foreground(warning)
	ErrorStyle   = lipgloss.NewStyle().Foreground(failure)
)

// Wizard styles, shared with the components package.
var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(accent)
	SubtitleStyle = lipgloss.NewStyle().Foreground(subtle)
	LabelStyle    = lipgloss.NewStyle().Foreground(subtle)
	FocusStyle    = lipgloss.NewStyle().Foreground(accent)
	ChosenStyle   = lipgloss.NewStyle().Foreground(accent).Bold(true)
	NoteStyle     = lipgloss.NewStyle().Foreground(faint).MarginLeft(4)
	HelpStyle     = lipgloss.NewStyle().Foreground(faint).MarginTop(1)
)

const (
	SymbolCheck   = "✓"
	SymbolCross   = "✗"
	SymbolWarning = "!"
	SymbolCursor  = "›"
)
