package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Report section names, in presentation order. They are also the JSON keys
// the agent must return.
const (
	SectionCompanyOverview  = "Company Overview"
	SectionStockPerformance = "Stock Performance"
	SectionRecentNews       = "Recent News"
	SectionAnalystRatings   = "Analyst Ratings"
	SectionTechnicalTrend   = "Technical Trend Analysis"
	SectionRecommendation   = "Final Buy/Hold/Sell Recommendation"
)

// ReportSections lists the six required sections in order
var ReportSections = []string{
	SectionCompanyOverview,
	SectionStockPerformance,
	SectionRecentNews,
	SectionAnalystRatings,
	SectionTechnicalTrend,
	SectionRecommendation,
}

// AnalysisRequest is a validated request for a stock analysis
type AnalysisRequest struct {
	Ticker      string  `json:"ticker"`
	Temperature float64 `json:"temperature"`
}

// AgentResponse is the raw text returned by the analyst
type AgentResponse struct {
	Content string `json:"content"`
}

// AnalysisReport is the six-section report the agent is asked to produce.
// Section bodies are kept raw since models return strings, lists or objects.
type AnalysisReport struct {
	CompanyOverview  json.RawMessage `json:"Company Overview"`
	StockPerformance json.RawMessage `json:"Stock Performance"`
	RecentNews       json.RawMessage `json:"Recent News"`
	AnalystRatings   json.RawMessage `json:"Analyst Ratings"`
	TechnicalTrend   json.RawMessage `json:"Technical Trend Analysis"`
	Recommendation   json.RawMessage `json:"Final Buy/Hold/Sell Recommendation"`
}

// Section returns the raw body of the named section
func (r *AnalysisReport) Section(name string) json.RawMessage {
	switch name {
	case SectionCompanyOverview:
		return r.CompanyOverview
	case SectionStockPerformance:
		return r.StockPerformance
	case SectionRecentNews:
		return r.RecentNews
	case SectionAnalystRatings:
		return r.AnalystRatings
	case SectionTechnicalTrend:
		return r.TechnicalTrend
	case SectionRecommendation:
		return r.Recommendation
	}
	return nil
}

// Markdown renders the report as markdown, one "###" block per section.
func (r *AnalysisReport) Markdown() string {
	var sb strings.Builder
	for i, name := range ReportSections {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("### ")
		sb.WriteString(name)
		sb.WriteString("\n\n")
		sb.WriteString(sectionMarkdown(r.Section(name)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// sectionMarkdown converts a section body to markdown. Strings pass through,
// lists become bullets, objects become "**key**: value" bullets.
func sectionMarkdown(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		lines := make([]string, 0, len(list))
		for _, item := range list {
			lines = append(lines, "- "+inlineValue(item))
		}
		return strings.Join(lines, "\n")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("- **%s**: %s", k, inlineValue(obj[k])))
		}
		return strings.Join(lines, "\n")
	}

	return strings.TrimSpace(string(raw))
}

// inlineValue renders a nested value on a single line.
func inlineValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, inlineValue(obj[k])))
		}
		return strings.Join(parts, "; ")
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, inlineValue(item))
		}
		return strings.Join(parts, ", ")
	}
	return strings.TrimSpace(string(raw))
}

// AnalysisResult is the success payload of an analysis
type AnalysisResult struct {
	Result     string      `json:"result"`
	PlotData   ChartSeries `json:"plot_data"`
	Disclaimer string      `json:"disclaimer"`
}
