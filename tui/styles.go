package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tablescope/tablescope/internal/config"
)

// Styles holds the lipgloss styles the renderer uses, built once from the
// loaded configuration.
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Cursor  lipgloss.Style
	Match   lipgloss.Style
	Dim     lipgloss.Style
	Status  lipgloss.Style
	Warning lipgloss.Style
	Prompt  lipgloss.Style
}

func pairStyle(p config.ColorPair) lipgloss.Style {
	s := lipgloss.NewStyle()
	if p.FG != "" {
		s = s.Foreground(lipgloss.Color(p.FG))
	}
	if p.BG != "" {
		s = s.Background(lipgloss.Color(p.BG))
	}
	return s
}

// NewStyles builds the style set from the color pairs in cfg.
func NewStyles(cfg config.Config) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header:  pairStyle(cfg.Colors.Header).Bold(true),
		Cursor:  pairStyle(cfg.Colors.Cursor),
		Match:   pairStyle(cfg.Colors.Match),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Status:  pairStyle(cfg.Colors.Status),
		Warning: pairStyle(cfg.Colors.Warning),
		Prompt:  lipgloss.NewStyle().Bold(true),
	}
}
