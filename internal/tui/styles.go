package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/finsight/internal/finance"
)

// Lipgloss styles (k9s-inspired color scheme)
var (
	// Header style - bright cyan background, bold black text
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	// Section title style - bold bright cyan
	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	// Label style - dim cyan
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	// Value style - bright white
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	// Dim style - for units and secondary info
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	// Money styles
	incomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	spendStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// Container style - rounded border with dim gray
	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	// Chat bubbles
	userMsgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)

	aiMsgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// Footer style - bright keys on dim background
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	// Sparkline container
	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))

	// Bar chart palette, cycled per category
	barStyles = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("51")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("213")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("83")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
	}
)

// categoryGlyph returns the icon shown next to a transaction in the
// sidebar list.
func categoryGlyph(c finance.Category) string {
	switch c {
	case finance.CategoryFoodDrink:
		return "🍔"
	case finance.CategoryTransport:
		return "🚗"
	case finance.CategoryShopping:
		return "🛍"
	case finance.CategoryHousing:
		return "🏠"
	case finance.CategoryEntertainment:
		return "🎬"
	case finance.CategoryIncome:
		return "💰"
	default:
		return "💳"
	}
}
