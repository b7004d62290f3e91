// Package termui renders the view models as styled terminal text.
package termui

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/hakim/vulntriage/internal/models"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Palette
var (
	Primary = lipgloss.Color("#7D56F4")
	Muted   = lipgloss.Color("#6B7280")
	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Error   = lipgloss.Color("#FF3838")

	HighColor    = lipgloss.Color("#FF6B6B")
	MediumColor  = lipgloss.Color("#FFA94D")
	LowColor     = lipgloss.Color("#FFD93D")
	InfoColor    = lipgloss.Color("#4D96FF")
	UnknownColor = lipgloss.Color("#9CA3AF")
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Primary).
			Padding(0, 1)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Width(16)

	ValueStyle = lipgloss.NewStyle().
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	ActiveStyle = lipgloss.NewStyle().
			Reverse(true)

	CodeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5E7EB")).
			PaddingLeft(2)
)

var (
	colorMu  sync.Mutex
	colorOff bool
)

// SetNoColor disables colours for everything rendered afterwards.
func SetNoColor(noColor bool) {
	colorMu.Lock()
	defer colorMu.Unlock()
	colorOff = noColor
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// Setup disables colour when requested or when f is not a terminal.
func Setup(f *os.File, noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(f.Fd())) {
		SetNoColor(true)
	}
}

// NoColor reports whether colours are disabled.
func NoColor() bool {
	colorMu.Lock()
	defer colorMu.Unlock()
	return colorOff
}

// SeverityStyle colours text by severity.
func SeverityStyle(s models.Severity) lipgloss.Style {
	c := UnknownColor
	switch s {
	case models.SeverityHigh:
		c = HighColor
	case models.SeverityMedium:
		c = MediumColor
	case models.SeverityLow:
		c = LowColor
	case models.SeverityInformational:
		c = InfoColor
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

// StatusStyle colours text by fix status.
func StatusStyle(s models.FixStatus) lipgloss.Style {
	switch s {
	case models.StatusFixed:
		return lipgloss.NewStyle().Foreground(Success)
	case models.StatusInProgress:
		return lipgloss.NewStyle().Foreground(InfoColor)
	case models.StatusPending:
		return lipgloss.NewStyle().Foreground(Warning)
	default:
		return MutedStyle
	}
}
