// Package display renders chat and evaluation state for the terminal.
package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/dyike/CortexAdvisor/models"
)

const panelWidth = 78

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9FAFB")).
			Background(lipgloss.Color("#2563EB")).
			Padding(0, 1)

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#111827")).
			Background(lipgloss.Color("#E5E7EB")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1).
			Width(panelWidth)

	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#6B7280")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Italic(true)

	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	gainStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	lossStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// Message renders one chat bubble; user bubbles are right aligned.
func Message(m models.Message) string {
	if m.IsUser() {
		bubble := userStyle.Render(m.Text)
		return lipgloss.PlaceHorizontal(panelWidth, lipgloss.Right, bubble)
	}
	return botStyle.Render("🤖 " + m.Text)
}

// Transcript renders a message log, one bubble per line.
func Transcript(msgs []models.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, Message(m))
	}
	return strings.Join(lines, "\n")
}

// Typing is shown while an advice request is pending.
func Typing() string {
	return mutedStyle.Render("🤖 Analyzing...")
}

// StateBadge renders a request state.
func StateBadge(state models.RequestState) string {
	switch state {
	case models.StatePending:
		return pendingStyle.Render("● " + state.String())
	case models.StateSucceeded:
		return completedStyle.Render("✓ " + state.String())
	case models.StateFailed:
		return errorStyle.Render("✗ " + state.String())
	default:
		return labelStyle.Render("○ " + state.String())
	}
}

// PanelView is what the analysis panel shows.
type PanelView struct {
	Symbol string
	State  models.RequestState
	Result *models.EvaluationResult
	Error  string
}

// Panel renders the analysis panel for one evaluation.
func Panel(v PanelView) string {
	var b strings.Builder
	title := "📊 Analysis"
	if v.Symbol != "" {
		title += ": " + strings.ToUpper(v.Symbol)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("  ")
	b.WriteString(StateBadge(v.State))
	b.WriteString("\n\n")

	switch {
	case v.State == models.StatePending:
		b.WriteString(mutedStyle.Render("Running backtest..."))
	case v.Error != "":
		b.WriteString(errorStyle.Render("❌ " + v.Error))
	case v.Result == nil:
		b.WriteString(mutedStyle.Render("Press analyze to run a backtest."))
	default:
		b.WriteString(Summary(v.Result.Summary))
		b.WriteString("\n\n")
		b.WriteString(Trades(v.Result.Trades))
		b.WriteString("\n\n")
		b.WriteString(Equity(v.Result.Equity))
	}
	return panelStyle.Render(b.String())
}

// Summary renders each metric as a card, profit and return metrics coloured
// by sign.
func Summary(s models.Summary) string {
	if len(s) == 0 {
		return mutedStyle.Render("No summary metrics.")
	}
	cards := make([]string, 0, len(s))
	for _, m := range s {
		value := FormatValue(m.Value)
		if d, ok := m.Value.(decimal.Decimal); ok && models.IsProfitMetric(m.Name) {
			value = signStyle(d).Render(value)
		}
		cards = append(cards, cardStyle.Render(labelStyle.Render(m.Name)+"\n"+value))
	}

	var rows []string
	const perRow = 4
	for i := 0; i < len(cards); i += perRow {
		end := min(i+perRow, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// Trades renders the trade log as a table.
func Trades(trades []models.Trade) string {
	if len(trades) == 0 {
		return mutedStyle.Render("No trades executed.")
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(labelStyle).
		Headers("Date", "Action", "Price", "Shares", "Cash", "PnL")
	for _, tr := range trades {
		pnl := "-"
		if !tr.PnL.IsZero() {
			pnl = tr.PnL.StringFixed(2)
			if d, ok := tr.PnL.Decimal(); ok {
				pnl = signStyle(d).Render(pnl)
			}
		}
		t.Row(tr.Date, tr.Action, tr.Price.StringFixed(2), tr.Shares.String(), tr.Cash.StringFixed(2), pnl)
	}
	return t.Render()
}

// Equity renders the equity and close series as sparklines with their first
// and last points.
func Equity(points []models.EquityPoint) string {
	if len(points) == 0 {
		return mutedStyle.Render("No equity data.")
	}
	// Non-numeric samples are left out of the sparklines.
	var equity, closes []decimal.Decimal
	for _, p := range points {
		if d, ok := p.Equity.Decimal(); ok {
			equity = append(equity, d)
		}
		if d, ok := p.Close.Decimal(); ok {
			closes = append(closes, d)
		}
	}

	first, last := points[0], points[len(points)-1]
	lastEquity := last.Equity.StringFixed(2)
	if from, ok := first.Equity.Decimal(); ok {
		if to, ok := last.Equity.Decimal(); ok {
			lastEquity = signStyle(to.Sub(from)).Render(lastEquity)
		}
	}
	return strings.Join([]string{
		fmt.Sprintf("%s %s → %s", labelStyle.Render("Period"), first.Date, last.Date),
		fmt.Sprintf("%s %s %s", labelStyle.Render("Equity"), Sparkline(equity, 48), lastEquity),
		fmt.Sprintf("%s %s %s", labelStyle.Render("Close "), Sparkline(closes, 48), last.Close.StringFixed(2)),
	}, "\n")
}

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws values in at most width cells, sampling evenly when there
// are more values than cells.
func Sparkline(values []decimal.Decimal, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if len(values) > width {
		sampled := make([]decimal.Decimal, width)
		for i := range sampled {
			sampled[i] = values[i*len(values)/width]
		}
		values = sampled
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = decimal.Min(lo, v)
		hi = decimal.Max(hi, v)
	}
	span := hi.Sub(lo)
	top := decimal.NewFromInt(int64(len(sparkLevels) - 1))

	out := make([]rune, len(values))
	for i, v := range values {
		if span.IsZero() {
			out[i] = sparkLevels[0]
			continue
		}
		idx := v.Sub(lo).Div(span).Mul(top).Round(0).IntPart()
		out[i] = sparkLevels[idx]
	}
	return string(out)
}

// FormatValue prints a summary value; decimals get at most two places.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case decimal.Decimal:
		return val.Round(2).String()
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func signStyle(d decimal.Decimal) lipgloss.Style {
	if d.IsNegative() {
		return lossStyle
	}
	return gainStyle
}

func DisplayError(w io.Writer, err error, context string) {
	fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("❌ Error in %s: %v", context, err)))
}

func DisplayWarning(w io.Writer, message string) {
	fmt.Fprintln(w, pendingStyle.Render("⚠️  "+message))
}

func DisplaySuccess(w io.Writer, message string) {
	fmt.Fprintln(w, completedStyle.Render("✅ "+message))
}

func DisplayInfo(w io.Writer, message string) {
	fmt.Fprintln(w, labelStyle.Render("ℹ️  "+message))
}
