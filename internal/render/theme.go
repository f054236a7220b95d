package render

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// DefaultTheme is used for unknown theme names.
const DefaultTheme = "default"

// Theme styles the rows of a page.
type Theme struct {
	Name      string
	Text      lipgloss.Style
	Heading   lipgloss.Style
	Quote     lipgloss.Style
	Image     lipgloss.Style
	Object    lipgloss.Style
	Highlight lipgloss.Style
}

var themes = map[string]Theme{
	"default": {
		Name:      "default",
		Text:      lipgloss.NewStyle(),
		Heading:   lipgloss.NewStyle().Bold(true),
		Quote:     lipgloss.NewStyle().Italic(true),
		Image:     lipgloss.NewStyle().Faint(true),
		Object:    lipgloss.NewStyle().Underline(true),
		Highlight: lipgloss.NewStyle().Reverse(true),
	},
	"sepia": {
		Name:      "sepia",
		Text:      lipgloss.NewStyle().Foreground(lipgloss.Color("#5b4636")),
		Heading:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3e2f23")),
		Quote:     lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#7a6450")),
		Image:     lipgloss.NewStyle().Foreground(lipgloss.Color("#8c7560")),
		Object:    lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("#5b4636")),
		Highlight: lipgloss.NewStyle().Background(lipgloss.Color("#f1d9a7")).Foreground(lipgloss.Color("#3e2f23")),
	},
	"night": {
		Name:      "night",
		Text:      lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Heading:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("117")),
		Quote:     lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("246")),
		Image:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Object:    lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("117")),
		Highlight: lipgloss.NewStyle().Background(lipgloss.Color("58")).Foreground(lipgloss.Color("230")),
	},
}

// LookupTheme returns the named theme and whether it exists. Unknown names
// get the default theme.
func LookupTheme(name string) (Theme, bool) {
	t, ok := themes[name]
	if !ok {
		return themes[DefaultTheme], false
	}
	return t, true
}

// ThemeNames lists the available themes in sorted order.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t Theme) styleFor(l line) lipgloss.Style {
	if l.highlight {
		return t.Highlight
	}
	switch l.kind {
	case kindHeading:
		return t.Heading
	case kindQuote:
		return t.Quote
	case kindImage:
		return t.Image
	case kindObject:
		return t.Object
	default:
		return t.Text
	}
}
