// Package styles holds the colours and lipgloss styles of the folio TUI.
package styles

import "github.com/charmbracelet/lipgloss"

// Theme is the palette the styles are derived from.
type Theme struct {
	// Primary marks titles, the selection and folio's answers.
	Primary lipgloss.Color
	// Secondary marks the user's questions.
	Secondary lipgloss.Color

	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Panel      lipgloss.Color
	Border     lipgloss.Color

	Warning lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme is a warm paper-on-stone palette.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    lipgloss.Color("#D97706"),
		Secondary:  lipgloss.Color("#0EA5E9"),
		Foreground: lipgloss.Color("#E7E5E4"),
		Muted:      lipgloss.Color("#78716C"),
		Panel:      lipgloss.Color("#0C0A09"),
		Border:     lipgloss.Color("#44403C"),
		Warning:    lipgloss.Color("#FACC15"),
		Error:      lipgloss.Color("#EF4444"),
	}
}

// Styles are the rendered styles shared by every view.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Help     lipgloss.Style
	Selected lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style

	// InputField frames the question input.
	InputField lipgloss.Style
	StatusBar  lipgloss.Style

	// Transcript.
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Source         lipgloss.Style
	Spinner        lipgloss.Style
}

// NewStyles derives styles from theme, or from DefaultTheme when theme is nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	fg := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}

	return &Styles{
		theme: theme,

		Title:    fg(theme.Primary).Bold(true),
		Subtitle: fg(theme.Secondary).Bold(true),
		Normal:   fg(theme.Foreground),
		Muted:    fg(theme.Muted),
		Help:     fg(theme.Muted),
		Selected: fg(theme.Foreground).Background(theme.Primary).Bold(true),
		Warning:  fg(theme.Warning),
		Error:    fg(theme.Error),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
		StatusBar: fg(theme.Muted).Background(theme.Panel).Padding(0, 1),

		UserLabel:      fg(theme.Secondary).Bold(true),
		AssistantLabel: fg(theme.Primary).Bold(true),
		Source:         fg(theme.Muted).Italic(true).PaddingLeft(2),
		Spinner:        fg(theme.Primary),
	}
}

// DefaultStyles returns NewStyles(DefaultTheme()).
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}
