package cli

import "github.com/charmbracelet/lipgloss"

// bannerStyle returns the header style; dry runs get a calmer palette than
// destructive runs.
func bannerStyle(dryRun bool) lipgloss.Style {
	background := lipgloss.Color("#B5283A")
	if dryRun {
		background = lipgloss.Color("#2F6F4E")
	}

	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(background).
		Padding(1, 4).
		MarginBottom(1).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(background)
}
