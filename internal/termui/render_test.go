package termui

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/hakim/vulntriage/internal/models"
	"github.com/hakim/vulntriage/internal/view"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func sampleVulns() []models.Vulnerability {
	return []models.Vulnerability{
		{ID: 1, Severity: models.SeverityHigh, Title: "SQL Injection", InstanceCount: 2, Instances: []models.Instance{
			{ID: 10, URL: "https://a.example/x", FixStatus: models.StatusPending},
			{ID: 11, URL: "https://a.example/y", FixStatus: models.StatusFixed},
		}},
		{ID: 2, Severity: models.SeverityLow, Title: "Missing header", InstanceCount: 1, Instances: []models.Instance{
			{ID: 20, URL: "https://a.example/z", FixStatus: "reopened"},
		}},
	}
}

func TestTreeRendersCollapseMarkers(t *testing.T) {
	tree := view.BuildTree(sampleVulns())
	state := view.TreeState{}
	state.Toggle(tree.BranchIDs(), view.VulnNodeID(2))

	var buf bytes.Buffer
	Tree(&buf, tree, state)
	out := buf.String()

	assert.Contains(t, out, "▼ 🔴 High (2)")
	assert.Contains(t, out, "▶ 📁 Missing header (1)")
	assert.Contains(t, out, "https://a.example/x")
	assert.NotContains(t, out, "https://a.example/z")
}

func TestRowsMarksSelectionAndUnknownStatus(t *testing.T) {
	rows := view.Rows(sampleVulns())

	var buf bytes.Buffer
	Rows(&buf, rows, view.NewSelection(11))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "[ ]"))
	assert.True(t, strings.HasPrefix(lines[1], "[x]"))
	assert.Contains(t, lines[2], "❓ reopened")
}

func TestPaginationFooter(t *testing.T) {
	assert.Equal(t, "3 total", Pagination(view.Paginate(1, 1, 3)))

	out := Pagination(view.Paginate(5, 10, 200))
	assert.Equal(t, "‹ 1 … 3 4 [5] 6 7 … 10 ›  200 total", out)
}

func TestDashboard(t *testing.T) {
	d := view.BuildDashboard(&models.DashboardStats{
		TotalReports:  1,
		SeverityStats: map[string]int{"High": 1, "Low": 1},
		StatusStats:   map[string]int{"fixed": 1, "pending": 1, "total": 2},
	}, 5)

	var buf bytes.Buffer
	Dashboard(&buf, d)
	out := buf.String()

	assert.Contains(t, out, "Fix progress 50%")
	assert.Contains(t, out, " 50.0%")
	assert.Contains(t, out, "No reports yet")
}

func TestDetailPanel(t *testing.T) {
	r := &models.Report{Vulnerabilities: []models.Vulnerability{{
		ID: 1, Severity: models.SeverityMedium, Title: "XSS", Description: "Reflected",
		Instances: []models.Instance{{ID: 5, URL: "https://a.example", Evidence: "<script>", FixStatus: models.StatusInProgress}},
	}}}
	d, ok := view.InstanceDetail(r, 5)
	assert.True(t, ok)

	var buf bytes.Buffer
	Detail(&buf, d)
	out := buf.String()

	assert.Contains(t, out, "🟠 XSS")
	assert.Contains(t, out, "Reflected")
	assert.Contains(t, out, "<script>")
	assert.NotContains(t, out, "Method")
}

func TestReportListEmpty(t *testing.T) {
	var buf bytes.Buffer
	ReportList(&buf, view.BuildReportList(nil, "nothing"))
	assert.Contains(t, buf.String(), "Search: nothing")
	assert.Contains(t, buf.String(), "No reports found")
}

func TestRemoteTreeSumsSeverityCounts(t *testing.T) {
	nodes := []models.TreeNode{{
		ID: "report-1", Name: "https://shop.example", Type: "report",
		Children: []models.TreeNode{{
			ID: "severity-1-High", Name: "High", Type: "severity",
			Children: []models.TreeNode{
				{ID: "vuln-1", Name: "SQL Injection", Type: "vulnerability", InstanceCount: 2, Children: []models.TreeNode{
					{ID: "instance-10", Name: "https://shop.example/a", Type: "instance", Status: models.StatusFixed},
					{ID: "instance-11", Name: "https://shop.example/b", Type: "instance", Status: models.StatusPending},
				}},
				{ID: "vuln-2", Name: "XSS", Type: "vulnerability", InstanceCount: 1},
			},
		}},
	}}

	var buf bytes.Buffer
	RemoteTree(&buf, nodes)
	out := buf.String()

	assert.Contains(t, out, " https://shop.example ")
	assert.Contains(t, out, "▼ 🔴 High (3)")
	assert.Contains(t, out, "  ▼ 📁 SQL Injection (2)")
	assert.Contains(t, out, "https://shop.example/a")
}

func TestRemoteTreeEmpty(t *testing.T) {
	var buf bytes.Buffer
	RemoteTree(&buf, []models.TreeNode{{Name: "https://empty.example", Type: "report"}})
	assert.Contains(t, buf.String(), "No findings")
}

func TestLogsHumanizesActionType(t *testing.T) {
	page := &models.LogPage{
		Logs:        []models.LogEntry{{ID: 1, ActionType: "STATUS", Message: "instance #4 -> fixed", CreatedAt: "2024-03-01T10:20:30"}},
		Total:       1,
		Pages:       1,
		CurrentPage: 1,
	}

	var buf bytes.Buffer
	Logs(&buf, page)
	out := buf.String()

	assert.Contains(t, out, "Status")
	assert.NotContains(t, out, "STATUS")
	assert.Contains(t, out, "instance #4 -> fixed")
}
