// Package report renders fetched reports and report diffs into local
// documents: markdown for review in a repository and PDF for handing over.
package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hakim/vulntriage/internal/models"
	"github.com/hakim/vulntriage/internal/view"
)

// dateLayout is the timestamp format used in document headers.
const dateLayout = "2006-01-02 15:04:05 UTC"

// WriteReport renders r as markdown and writes it to outputPath.
func WriteReport(r *models.Report, outputPath string) error {
	return writeFile(outputPath, RenderReport(r, time.Now()))
}

// RenderReport builds the markdown document for a fetched report. Severity
// sections follow the display order and empty severities are skipped.
func RenderReport(r *models.Report, generated time.Time) string {
	var b strings.Builder

	// Header
	b.WriteString("# Vulnerability Report\n\n")
	b.WriteString(fmt.Sprintf("**Site:** %s\n", r.DisplayName()))
	if r.FileName != "" {
		b.WriteString(fmt.Sprintf("**File:** %s\n", r.FileName))
	}
	b.WriteString(fmt.Sprintf("**Imported:** %s\n", view.FormatDate(r.ImportedAt)))
	b.WriteString(fmt.Sprintf("**Generated:** %s\n", generated.UTC().Format(dateLayout)))

	sev := severityCounts(r)
	b.WriteString(fmt.Sprintf(
		"**Total instances:** %d | **High:** %d | **Medium:** %d | **Low:** %d | **Informational:** %d\n\n",
		r.TotalInstances(),
		sev[models.SeverityHigh],
		sev[models.SeverityMedium],
		sev[models.SeverityLow],
		sev[models.SeverityInformational],
	))

	if notes := strings.TrimSpace(r.Notes); notes != "" {
		b.WriteString("## Notes\n\n")
		b.WriteString(notes)
		b.WriteString("\n\n")
	}

	writeStatusTable(&b, r)

	tree := view.BuildTree(r.Vulnerabilities)
	if len(tree.Groups) == 0 {
		b.WriteString("No vulnerabilities found.\n")
		return b.String()
	}

	vulns := vulnsByNode(r)

	// One section per severity group, one sub-section per vulnerability
	for _, group := range tree.Groups {
		b.WriteString(fmt.Sprintf("## %s Findings (%d)\n\n", group.Label, group.Count))
		for _, node := range group.Children {
			writeVulnSection(&b, node, vulns[node.ID])
		}
	}

	return b.String()
}

// writeStatusTable renders the fix status breakdown. Statuses without
// instances are left out; unknown statuses are listed after the known ones.
func writeStatusTable(b *strings.Builder, r *models.Report) {
	counts := statusCounts(r)
	if len(counts) == 0 {
		return
	}

	b.WriteString("## Fix Status\n\n")
	b.WriteString("| Status | Instances |\n")
	b.WriteString("|--------|-----------|\n")
	for _, s := range orderedStatuses(counts) {
		b.WriteString(fmt.Sprintf("| %s | %d |\n", s.Label(), counts[s]))
	}
	b.WriteString("\n")
}

// writeVulnSection renders one vulnerability with its instance table.
func writeVulnSection(b *strings.Builder, node *view.Node, vuln *models.Vulnerability) {
	b.WriteString(fmt.Sprintf("### %s (%d)\n\n", cell(node.Label), node.Count))

	if vuln != nil && strings.TrimSpace(vuln.Description) != "" {
		b.WriteString(strings.TrimSpace(vuln.Description))
		b.WriteString("\n\n")
	}

	if vuln == nil || len(vuln.Instances) == 0 {
		b.WriteString("No instances recorded.\n\n")
		return
	}

	b.WriteString("| ID | Method | URL | Parameter | Status | Fixed By |\n")
	b.WriteString("|----|--------|-----|-----------|--------|----------|\n")
	for _, inst := range vuln.Instances {
		b.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s |\n",
			inst.ID, dash(inst.Method), cell(inst.URL), dash(cell(inst.Parameter)),
			inst.FixStatus.Label(), dash(cell(inst.FixedBy))))
	}
	b.WriteString("\n")
}

// cell makes s safe inside a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}

// dash renders empty values as "-".
func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// writeFile writes content to path, wrapping any OS error with context.
func writeFile(outputPath, content string) error {
	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing report to %s: %w", outputPath, err)
	}
	return nil
}
