package console

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/telepoker/telepoker/internal/deck"
)

// Styles holds the lipgloss styles for one terminal. Built once at
// startup because the background probe talks to the terminal.
type Styles struct {
	Header    lipgloss.Style
	Pot       lipgloss.Style
	Turn      lipgloss.Style
	RedCard   lipgloss.Style
	BlackCard lipgloss.Style
	Error     lipgloss.Style
	System    lipgloss.Style
	Chat      lipgloss.Style
	Focused   lipgloss.Style
	Blurred   lipgloss.Style
}

// NewStyles probes the terminal background so black suits stay readable
// on dark terminals.
func NewStyles() Styles {
	black := lipgloss.Color("#1A1A1A")
	if termenv.HasDarkBackground() {
		black = lipgloss.Color("#FAFAFA")
	}
	return Styles{
		Header:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4")).Bold(true),
		Pot:       lipgloss.NewStyle().Foreground(lipgloss.Color("#FFEAA7")).Bold(true),
		Turn:      lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true),
		RedCard:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		BlackCard: lipgloss.NewStyle().Foreground(black).Bold(true),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		System:    lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
		Chat:      lipgloss.NewStyle().Foreground(lipgloss.Color("#96CEB4")),
		Focused:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#04B575")),
		Blurred:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#626262")),
	}
}

// FormatCards renders cards with suit coloring, e.g. [A♠ K♥].
func (s Styles) FormatCards(cards []deck.Card) string {
	if len(cards) == 0 {
		return ""
	}
	rendered := make([]string, len(cards))
	for i, card := range cards {
		if card.IsRed() {
			rendered[i] = s.RedCard.Render(card.String())
		} else {
			rendered[i] = s.BlackCard.Render(card.String())
		}
	}
	return "[" + strings.Join(rendered, " ") + "]"
}
