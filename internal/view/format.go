// Package view turns backend payloads into render-ready view models. Every
// function here is pure: the same payload and state always give the same
// output, so the web pages, the terminal UI and the MCP tools share it.
package view

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Display widths used by the tree, the table and the panels.
const (
	TreeTitleWidth  = 30
	TreeURLWidth    = 40
	TableTitleWidth = 40
	TableURLWidth   = 50
)

var (
	titleCaser = cases.Title(language.English)
	printer    = message.NewPrinter(language.English)
)

// dateLayouts are tried in order; the backend emits ISO timestamps without
// a zone.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Truncate shortens s to max runes, appending "..." when it was cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// FormatCount renders n with thousands separators.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatDate renders a backend timestamp as "2006-01-02 15:04". Empty input
// gives "-" and unparseable input is returned unchanged.
func FormatDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "-"
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.Format("2006-01-02 15:04")
		}
	}
	return raw
}

// Humanize turns snake_case identifiers such as log action types into
// title-cased words.
func Humanize(raw string) string {
	if raw == "" {
		return ""
	}
	return titleCaser.String(strings.ReplaceAll(raw, "_", " "))
}

// Percent returns part/total*100, or 0 when total is not positive.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
