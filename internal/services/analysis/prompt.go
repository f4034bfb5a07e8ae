package analysis

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/tickerwise/internal/agent"
	"github.com/bobmcallan/tickerwise/internal/models"
)

// Instructions are the fixed system instructions given to the analyst
var Instructions = strings.Join([]string{
	"You are a stock analysis assistant.",
	fmt.Sprintf("Use the %s tool for real-time stock-related news.", agent.NewsSearchToolName),
	fmt.Sprintf("Use the %s tool for stock prices, company details and analyst recommendations.", agent.StockDataToolName),
	"Provide the top 3 recent news headlines with short summaries.",
}, "\n")

// PriceLines renders the price block for a snapshot. The after-hours line is
// present only when an after-hours price is known.
func PriceLines(snap *models.PriceSnapshot) []string {
	price, fallback, ok := snap.DisplayPrice()
	if !ok {
		return []string{"Stock Price Unavailable"}
	}

	line := fmt.Sprintf("Live Stock Price: $%.2f", price)
	if fallback {
		line += " (last close)"
	}
	lines := []string{line}

	if snap.AfterHours != nil {
		lines = append(lines, fmt.Sprintf("After-Hours Price: $%.2f", *snap.AfterHours))
	}
	return lines
}

// BuildPrompt renders the per-request prompt. It never fails: a nil or
// empty snapshot produces the "unavailable" price line.
func BuildPrompt(ticker string, snap *models.PriceSnapshot) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a stock analysis AI. Your job is to analyze %s.\n\n", ticker)

	sb.WriteString("Instructions:\n")
	fmt.Fprintf(&sb, "- Use %s to get the real-time stock price, company details (market cap, sector, key financials), analyst recommendations and recent price trends.\n", agent.StockDataToolName)
	fmt.Fprintf(&sb, "- Use %s to get the latest stock news.\n", agent.NewsSearchToolName)
	fmt.Fprintf(&sb, "- Do NOT use %s for stock prices.\n", agent.NewsSearchToolName)
	sb.WriteString("- If the real-time price is missing, use the last closing price and say so.\n\n")

	sb.WriteString("Stock Price:\n")
	for _, line := range PriceLines(snap) {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString("Response sections:\n")
	for i, name := range models.ReportSections {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, name)
	}
	sb.WriteString("\n")

	sb.WriteString("Return only a single JSON object with exactly these keys and no others:\n")
	sb.WriteString("{\n")
	for i, name := range models.ReportSections {
		sep := ","
		if i == len(models.ReportSections)-1 {
			sep = ""
		}
		fmt.Fprintf(&sb, "  %q: \"\"%s\n", name, sep)
	}
	sb.WriteString("}\n")
	sb.WriteString("Values may be markdown text, a list of strings or an object of labelled strings.\n")

	return sb.String()
}
