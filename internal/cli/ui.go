package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7C3AED")).
			Padding(0, 2).
			Width(78).
			Align(lipgloss.Center)

	taglineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Italic(true)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Width(20)
)

var chatCommands = [][2]string{
	{"/analyze [SYMBOL]", "Run a backtest for the selected or given symbol"},
	{"/panel", "Show or hide the analysis panel"},
	{"/close", "Hide the analysis panel"},
	{"/symbol [SYMBOL]", "Select a symbol by hand"},
	{"/status", "Show the selected symbol and request states"},
	{"/help", "Show this help"},
	{"/exit", "Leave CortexAdvisor"},
}

// DisplayWelcomeBanner shows the welcome banner
func DisplayWelcomeBanner(w io.Writer) {
	fmt.Fprintln(w, bannerStyle.Render("🚀 CortexAdvisor v"+Version))
	fmt.Fprintln(w, taglineStyle.Render("Ask about any stock in plain language. Type /help for commands."))
	fmt.Fprintln(w)
}

// DisplayHelp lists the chat commands.
func DisplayHelp(w io.Writer) {
	fmt.Fprintln(w, "📚 Commands")
	for _, c := range chatCommands {
		fmt.Fprintln(w, "  "+helpKeyStyle.Render(c[0])+c[1])
	}
}
