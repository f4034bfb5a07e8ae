package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripToolCalls(t *testing.T) {
	in := "  <|tool_call|>get_stock_data<|tool_end|>\nApple is up.<|tool_result|>  "
	assert.Equal(t, "get_stock_data\nApple is up.", StripToolCalls(in))
}

func TestFormat_Empty(t *testing.T) {
	assert.Equal(t, "", Format(""))
	assert.Equal(t, "", Format("   <|tool|>  "))
}

func TestFormat_RendersMarkdown(t *testing.T) {
	out := Format("### Company Overview\n\nApple designs **phones**.")
	assert.Contains(t, out, "<h3>Company Overview</h3>")
	assert.Contains(t, out, "<strong>phones</strong>")
}

func TestFormat_DecoratesTables(t *testing.T) {
	md := "| Metric | Value |\n|---|---|\n| P/E | 31.2 |\n"
	out := Format(md)

	assert.Contains(t, out, `<table class="table table-bordered table-striped">`)
	assert.NotContains(t, out, "<table>")
}

func TestFormat_RawHTMLTableIsDecorated(t *testing.T) {
	out := Format("<table>\n<tr><td>1</td></tr>\n</table>")
	assert.Contains(t, out, `<table class="table table-bordered table-striped">`)
	assert.NotContains(t, out, "<table>")
}

func TestStripFences_SpansLines(t *testing.T) {
	in := "before ```json\n{\"a\": 1}\n``` after ```x``` end"
	assert.Equal(t, "before  after  end", StripFences(in))
}

func TestDecorateTables(t *testing.T) {
	in := "<table><tr></tr></table><table><tr></tr></table>"
	out := DecorateTables(in)
	assert.Equal(t, 2, strings.Count(out, `<table class="table table-bordered table-striped">`))
	assert.NotContains(t, out, "<table>")
}

func TestSanitizers_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"<|tool_call|>x<|end|> <table> ```code``` <table>",
		"<table class=\"table table-bordered table-striped\">done</table>",
		"``` unterminated fence",
	}

	steps := map[string]func(string) string{
		"StripToolCalls": StripToolCalls,
		"StripFences":    StripFences,
		"DecorateTables": DecorateTables,
	}

	for name, step := range steps {
		for _, in := range inputs {
			once := step(in)
			assert.Equal(t, once, step(once), "%s not idempotent for %q", name, in)
		}
	}
}

func TestFormat_TwiceLeavesNoArtifacts(t *testing.T) {
	raw := "<|tool_call|>lookup<|end|>\n### News\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n```json\n{}\n```\n"
	twice := Format(Format(raw))

	assert.False(t, toolCallMarker.MatchString(twice))
	assert.NotContains(t, twice, "```")
	assert.NotContains(t, twice, "<table>")
	assert.Contains(t, twice, `<table class="table table-bordered table-striped">`)
}

func TestFormat_OwnOutputUnchanged(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"paragraph and indented code", "Plain & simple\n\n    indented code\n\nafter"},
		{"raw html around a fence", "<div>\n```x```\n</div>"},
		{"full report", "<|tool_call|>get_stock_data<|end|>\n### Company Overview\n\nApple designs **phones** & services.\n\n" +
			"### Stock Performance\n\n- Up 4% over three months\n- Volume normal\n\n" +
			"### Technical Trend Analysis\n\n| Indicator | Value |\n|---|---|\n| SMA20 | 221.4 |\n\n" +
			"```json\n{\"a\": 1}\n```\n\n1. Hold\n2. Review in Q3\n"},
		{"fenced code with blank lines", "Intro\n\n```go\nfunc a() {}\n\nfunc b() {}\n```\n\n> quoted\n"},
		{"comment then text", "<!-- note -->\nSome *text* here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := Format(tt.raw)
			assert.NotEmpty(t, once)
			assert.Equal(t, once, Format(once))
		})
	}
}

func TestFormat_FenceInsideRawHTML(t *testing.T) {
	assert.Equal(t, "<div>\n</div>", Format("<div>\n```x```\n</div>"))
}
