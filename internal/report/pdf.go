package report

import (
	"fmt"
	"io"
	"os"
	"time"

	gofpdf "github.com/go-pdf/fpdf"
	"github.com/hakim/vulntriage/internal/models"
	"github.com/hakim/vulntriage/internal/view"
)

// PDF column widths in millimetres for the instance table.
const (
	colID     = 14.0
	colMethod = 18.0
	colURL    = 98.0
	colStatus = 0.0 // remainder
	rowHeight = 6.0
)

// severityRGB maps severities to header colours.
var severityRGB = map[models.Severity][3]int{
	models.SeverityHigh:          {220, 38, 38},
	models.SeverityMedium:        {234, 88, 12},
	models.SeverityLow:           {202, 138, 4},
	models.SeverityInformational: {37, 99, 235},
}

// WritePDFFile renders r as PDF and writes it to outputPath.
func WritePDFFile(r *models.Report, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outputPath, err)
	}
	if err := WritePDF(f, r, time.Now()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing report to %s: %w", outputPath, err)
	}
	return nil
}

// WritePDF renders r as a PDF document into w.
func WritePDF(w io.Writer, r *models.Report, generated time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(tr("Vulnerability Report: "+r.DisplayName()), false)
	pdf.SetCreator("vulntriage", false)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	addCover(pdf, tr, r, generated)
	addSeveritySummary(pdf, r)
	addFindings(pdf, tr, r)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}
	return nil
}

func addCover(pdf *gofpdf.Fpdf, tr func(string) string, r *models.Report, generated time.Time) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 10, "Vulnerability Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.CellFormat(0, 6, tr("Site: "+r.DisplayName()), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Imported: "+view.FormatDate(r.ImportedAt), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Generated: "+generated.UTC().Format(dateLayout), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if r.Notes != "" {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(30, 41, 59)
		pdf.CellFormat(0, 7, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.MultiCell(0, 5, tr(r.Notes), "", "L", false)
		pdf.Ln(4)
	}
}

// addSeveritySummary renders a one-row table of instance counts per severity.
func addSeveritySummary(pdf *gofpdf.Fpdf, r *models.Report) {
	counts := severityCounts(r)
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	cellW := (pageW - left - right) / float64(len(models.SeverityOrder)+1)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	for _, sev := range models.SeverityOrder {
		pdf.CellFormat(cellW, 8, string(sev), "1", 0, "C", true, 0, "")
	}
	pdf.CellFormat(cellW, 8, "Total", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "B", 10)
	for _, sev := range models.SeverityOrder {
		rgb := severityRGB[sev]
		pdf.SetTextColor(rgb[0], rgb[1], rgb[2])
		pdf.CellFormat(cellW, 8, fmt.Sprintf("%d", counts[sev]), "1", 0, "C", false, 0, "")
	}
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(cellW, 8, fmt.Sprintf("%d", r.TotalInstances()), "1", 1, "C", false, 0, "")
	pdf.Ln(6)
}

// addFindings renders each severity group with its vulnerabilities and an
// instance table per vulnerability.
func addFindings(pdf *gofpdf.Fpdf, tr func(string) string, r *models.Report) {
	tree := view.BuildTree(r.Vulnerabilities)
	if len(tree.Groups) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 8, "No vulnerabilities found.", "", 1, "L", false, 0, "")
		return
	}

	vulns := vulnsByNode(r)
	for _, group := range tree.Groups {
		rgb, ok := severityRGB[group.Severity]
		if !ok {
			rgb = [3]int{100, 116, 139}
		}
		pdf.SetFont("Helvetica", "B", 13)
		pdf.SetTextColor(rgb[0], rgb[1], rgb[2])
		pdf.CellFormat(0, 9, fmt.Sprintf("%s (%d)", group.Label, group.Count), "B", 1, "L", false, 0, "")
		pdf.Ln(2)

		for _, node := range group.Children {
			addVulnerability(pdf, tr, node, vulns[node.ID])
		}
	}
}

func addVulnerability(pdf *gofpdf.Fpdf, tr func(string) string, node *view.Node, vuln *models.Vulnerability) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(30, 41, 59)
	pdf.MultiCell(0, 6, tr(fmt.Sprintf("%s (%d)", node.Label, node.Count)), "", "L", false)

	if vuln == nil {
		return
	}
	if vuln.Description != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(80, 80, 80)
		pdf.MultiCell(0, 4.5, tr(vuln.Description), "", "L", false)
	}
	pdf.Ln(1)

	if len(vuln.Instances) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(241, 245, 249)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(colID, rowHeight, "ID", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colMethod, rowHeight, "Method", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colURL, rowHeight, "URL", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colStatus, rowHeight, "Status", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(60, 60, 60)
	for _, inst := range vuln.Instances {
		pdf.CellFormat(colID, rowHeight, fmt.Sprintf("%d", inst.ID), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colMethod, rowHeight, dash(inst.Method), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colURL, rowHeight, tr(view.Truncate(inst.URL, 60)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colStatus, rowHeight, tr(inst.FixStatus.Label()), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)
}
