package analysis

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// TableClass is applied to every rendered table
const TableClass = "table table-bordered table-striped"

var (
	toolCallMarker = regexp.MustCompile(`<\|tool.*?\|>`)
	fencedRegion   = regexp.MustCompile("(?s)```.*?```")
	bareTable      = regexp.MustCompile(`<table>`)
	blankLine      = regexp.MustCompile(`(?m)^[ \t]*\n`)

	markdown = goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
)

// StripToolCalls removes tool-call markers and trims whitespace
func StripToolCalls(s string) string {
	return strings.TrimSpace(toolCallMarker.ReplaceAllString(s, ""))
}

// StripFences removes every region delimited by triple backticks
func StripFences(s string) string {
	return fencedRegion.ReplaceAllString(s, "")
}

// DecorateTables adds the bootstrap table classes to bare <table> tags
func DecorateTables(s string) string {
	return bareTable.ReplaceAllString(s, `<table class="`+TableClass+`">`)
}

// RenderMarkdown converts markdown to HTML. Raw HTML in the input is kept.
func RenderMarkdown(s string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(s), &buf); err != nil {
		// goldmark only fails on writer errors; fall back to the source text
		return s
	}
	return buf.String()
}

// compactHTML drops blank lines and surrounding whitespace. Markdown ends an
// HTML block at a blank line, so compact output renders back to itself.
func compactHTML(s string) string {
	return strings.TrimSpace(blankLine.ReplaceAllString(s, ""))
}

// Format turns raw agent text into display HTML: markers stripped, markdown
// rendered, fenced regions removed and tables decorated. Formatting its own
// output returns it unchanged.
func Format(raw string) string {
	text := StripToolCalls(raw)
	if text == "" {
		return ""
	}
	return compactHTML(DecorateTables(StripFences(RenderMarkdown(text))))
}
