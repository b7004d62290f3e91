package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/hakim/vulntriage/internal/diff"
	"github.com/hakim/vulntriage/internal/models"
)

// WriteDiffReport renders the delta between two reports and writes it to
// outputPath.
func WriteDiffReport(result *diff.DiffResult, outputPath string) error {
	return writeFile(outputPath, RenderDiff(result, time.Now()))
}

// RenderDiff builds the markdown document for a report diff.
func RenderDiff(result *diff.DiffResult, generated time.Time) string {
	var b strings.Builder

	b.WriteString("# Report Diff\n\n")
	b.WriteString(fmt.Sprintf("**Current:** #%d %s\n", result.Current.ID, result.Current.Name))
	b.WriteString(fmt.Sprintf("**Previous:** #%d %s\n", result.Previous.ID, result.Previous.Name))
	b.WriteString(fmt.Sprintf("**Date:** %s\n\n", generated.UTC().Format(dateLayout)))

	// If there are zero changes across all categories, short-circuit.
	if result.Empty() {
		b.WriteString("No changes detected.\n")
		return b.String()
	}

	writeDiffSummaryTable(&b, result)
	writeFindings(&b, "New Findings", "+", result.NewFindings)
	writeFindings(&b, "Resolved Findings", "-", result.ResolvedFindings)
	writeStatusChanges(&b, result.StatusChanges)

	return b.String()
}

// ---------------------------------------------------------------------------
// Section writers
// ---------------------------------------------------------------------------

// writeDiffSummaryTable writes one row per severity plus a total row.
func writeDiffSummaryTable(b *strings.Builder, r *diff.DiffResult) {
	added := make(map[models.Severity]int)
	for _, f := range r.NewFindings {
		added[f.Severity]++
	}
	removed := make(map[models.Severity]int)
	for _, f := range r.ResolvedFindings {
		removed[f.Severity]++
	}

	b.WriteString("## Summary\n\n")
	b.WriteString("| Severity | Previous | Current | Change |\n")
	b.WriteString("|----------|----------|---------|--------|\n")
	for _, sev := range models.SeverityOrder {
		b.WriteString(fmt.Sprintf("| %s | %d | %d | %s |\n",
			sev, r.PreviousSeverity[sev], r.CurrentSeverity[sev], formatChange(added[sev], removed[sev])))
	}
	b.WriteString(fmt.Sprintf("| **Total** | %d | %d | %s |\n",
		r.PreviousCount, r.CurrentCount, formatChange(len(r.NewFindings), len(r.ResolvedFindings))))
	b.WriteString(fmt.Sprintf("\nStatus changes: %d, unchanged: %d\n\n", len(r.StatusChanges), r.Unchanged))
}

// writeFindings renders a finding table. Skipped when empty.
func writeFindings(b *strings.Builder, title, sign string, findings []diff.Finding) {
	if len(findings) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("## %s (%s%d)\n\n", title, sign, len(findings)))
	b.WriteString("| Severity | Title | Method | URL | Parameter | Status |\n")
	b.WriteString("|----------|-------|--------|-----|-----------|--------|\n")
	for _, f := range findings {
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
			f.Severity.Label(), cell(f.Title), dash(f.Method), cell(f.URL), dash(cell(f.Parameter)), f.Status.Label()))
	}
	b.WriteString("\n")
}

// writeStatusChanges renders findings whose fix status moved. Skipped when empty.
func writeStatusChanges(b *strings.Builder, changes []diff.StatusChange) {
	if len(changes) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("## Status Changes (%d)\n\n", len(changes)))
	for _, c := range changes {
		b.WriteString(fmt.Sprintf("- [%s] %s %s: %s → %s\n",
			c.Finding.Severity.Label(), c.Finding.Title, c.Finding.URL, c.From.Label(), c.To.Label()))
	}
	b.WriteString("\n")
}

// formatChange returns a human-readable change string such as "+3 / -1".
// When there are no additions and no removals it returns "none".
func formatChange(added, removed int) string {
	if added == 0 && removed == 0 {
		return "none"
	}
	parts := make([]string, 0, 2)
	if added > 0 {
		parts = append(parts, fmt.Sprintf("+%d", added))
	}
	if removed > 0 {
		parts = append(parts, fmt.Sprintf("-%d", removed))
	}
	return strings.Join(parts, " / ")
}
