// Package styles holds the terminal palette of the noteweave CLI.
package styles

import "github.com/charmbracelet/lipgloss"

// Monokai Pro color palette
const (
	Foreground = "#FCFCFA"

	Red    = "#FF6188" // errors
	Orange = "#FC9867" // warnings, unresolved links
	Yellow = "#FFD866" // anchors
	Green  = "#A9DC76" // success
	Cyan   = "#78DCE8" // note names
	Purple = "#AB9DF2" // link targets

	Comment = "#727072" // positions, help
	Border  = "#5B595C"
)

var (
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(Green))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(Red))
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(Orange))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(Comment))
	NoteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(Cyan)).Bold(true)
	TargetStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(Purple))
	AnchorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(Yellow))

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(Red))

	BoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(Border)).
			Padding(0, 1)
)
