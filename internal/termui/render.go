package termui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hakim/vulntriage/internal/models"
	"github.com/hakim/vulntriage/internal/view"
)

// barWidth is the number of cells of a full severity bar.
const barWidth = 30

// Dashboard prints the counters, severity bars, fix progress and recent
// reports.
func Dashboard(w io.Writer, d view.Dashboard) {
	fmt.Fprintln(w, TitleStyle.Render("Dashboard"))

	counters := make([]string, 0, len(d.Counters))
	for _, c := range d.Counters {
		counters = append(counters, lipgloss.NewStyle().PaddingRight(4).Render(
			ValueStyle.Render(c.Display)+" "+MutedStyle.Render(c.Label)))
	}
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, counters...))

	fmt.Fprintln(w, SectionStyle.Render("Severity"))
	for _, b := range d.Bars {
		filled := int(b.Percent / 100 * barWidth)
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
		fmt.Fprintf(w, "%s %s %s %5.1f%%\n",
			LabelStyle.Render(b.Severity.Emoji()+" "+b.Severity.Label()),
			SeverityStyle(b.Severity).Render(bar),
			lipgloss.NewStyle().Width(6).Align(lipgloss.Right).Render(view.FormatCount(b.Count)),
			b.Percent)
	}

	fmt.Fprintln(w, SectionStyle.Render(fmt.Sprintf("Fix progress %d%%", d.Ring.FixedPercent)))
	for _, seg := range d.Ring.Segments {
		fmt.Fprintf(w, "%s %s\n",
			LabelStyle.Render(seg.Status.Emoji()+" "+seg.Status.Label()),
			StatusStyle(seg.Status).Render(view.FormatCount(seg.Count)))
	}

	fmt.Fprintln(w, SectionStyle.Render("Recent reports"))
	if len(d.Recent) == 0 {
		fmt.Fprintln(w, MutedStyle.Render("No reports yet"))
		return
	}
	for _, r := range d.Recent {
		fmt.Fprintf(w, "#%-5d %s  %s  %s\n", r.ID, r.Site, MutedStyle.Render(r.Imported), badges(r.Badges))
	}
}

// ReportList prints the reports table and its pagination footer.
func ReportList(w io.Writer, l view.ReportList) {
	if l.Search != "" {
		fmt.Fprintln(w, MutedStyle.Render("Search: "+l.Search))
	}
	if l.Empty() {
		fmt.Fprintln(w, MutedStyle.Render("No reports found"))
	}
	for _, r := range l.Rows {
		notes := ""
		if r.HasNotes {
			notes = " 📝"
		}
		fmt.Fprintf(w, "#%-5d %-40s %-16s %s\n", r.ID, view.Truncate(r.Site, 40)+notes, r.Imported, badges(r.Badges))
	}
	fmt.Fprintln(w, Pagination(l.Pagination))
}

// Pagination renders the footer: the total count, and when there is more
// than one page the page buttons with the current one bracketed.
func Pagination(p view.Pagination) string {
	total := fmt.Sprintf("%s total", view.FormatCount(p.Total))
	if !p.Show {
		return MutedStyle.Render(total)
	}

	parts := make([]string, 0, len(p.Items)+2)
	if p.PrevDisabled {
		parts = append(parts, MutedStyle.Render("‹"))
	} else {
		parts = append(parts, "‹")
	}
	for _, it := range p.Items {
		switch {
		case it.Ellipsis:
			parts = append(parts, "…")
		case it.Current:
			parts = append(parts, ValueStyle.Render(fmt.Sprintf("[%d]", it.Page)))
		default:
			parts = append(parts, fmt.Sprint(it.Page))
		}
	}
	if p.NextDisabled {
		parts = append(parts, MutedStyle.Render("›"))
	} else {
		parts = append(parts, "›")
	}
	return strings.Join(parts, " ") + "  " + MutedStyle.Render(total)
}

// Tree prints the severity outline with collapse markers.
func Tree(w io.Writer, t view.Tree, state view.TreeState) {
	if len(t.Groups) == 0 {
		fmt.Fprintln(w, MutedStyle.Render("No findings"))
		return
	}
	for _, n := range t.Visible(state) {
		indent := strings.Repeat("  ", n.Depth)
		var line string
		if n.Leaf() {
			line = fmt.Sprintf("%s  %s %s", indent, n.Icon, n.Short)
			if n.Active {
				line = ActiveStyle.Render(line)
			}
		} else {
			marker := "▼"
			if !n.Expanded {
				marker = "▶"
			}
			label := n.Short
			if n.Kind == view.KindSeverity {
				label = SeverityStyle(n.Severity).Render(label)
			}
			line = fmt.Sprintf("%s%s %s %s (%s)", indent, marker, n.Icon, label, view.FormatCount(n.Count))
		}
		fmt.Fprintln(w, line)
	}
}

// RemoteTree prints a tree as returned by the backend. The report root is
// skipped when it is the only top-level node.
func RemoteTree(w io.Writer, nodes []models.TreeNode) {
	if len(nodes) == 1 && nodes[0].Type == "report" {
		fmt.Fprintln(w, TitleStyle.Render(nodes[0].Name))
		nodes = nodes[0].Children
	}
	if len(nodes) == 0 {
		fmt.Fprintln(w, MutedStyle.Render("No findings"))
		return
	}

	var visit func(nodes []models.TreeNode, depth int)
	visit = func(nodes []models.TreeNode, depth int) {
		for _, n := range nodes {
			indent := strings.Repeat("  ", depth)
			switch n.Type {
			case "instance":
				fmt.Fprintf(w, "%s  %s %s\n", indent, n.Status.Emoji(), view.Truncate(n.Name, view.TreeURLWidth))
			case "severity":
				sev := models.Severity(n.Name)
				fmt.Fprintf(w, "%s▼ %s %s (%s)\n", indent, sev.Emoji(),
					SeverityStyle(sev).Render(sev.Label()), view.FormatCount(remoteCount(n)))
			default:
				fmt.Fprintf(w, "%s▼ 📁 %s (%s)\n", indent,
					view.Truncate(n.Name, view.TreeTitleWidth), view.FormatCount(n.InstanceCount))
			}
			visit(n.Children, depth+1)
		}
	}
	visit(nodes, 0)
}

// remoteCount is the node's instance count, summed from its children when
// the backend left it out.
func remoteCount(n models.TreeNode) int {
	if n.InstanceCount > 0 || len(n.Children) == 0 {
		return n.InstanceCount
	}
	total := 0
	for _, c := range n.Children {
		total += remoteCount(c)
	}
	return total
}

// Rows prints the flat instance table. Selected rows are ticked.
func Rows(w io.Writer, rows []view.Row, sel view.Selection) {
	if len(rows) == 0 {
		fmt.Fprintln(w, MutedStyle.Render("No instances"))
		return
	}
	for _, r := range rows {
		box := "[ ]"
		if sel.Has(r.InstanceID) {
			box = "[x]"
		}
		fmt.Fprintf(w, "%s %-6d %s %-40s %-50s %s\n",
			box,
			r.InstanceID,
			SeverityStyle(r.Severity).Render(fmt.Sprintf("%-5s", r.Severity.Short())),
			r.TitleShort,
			r.URLShort,
			StatusStyle(r.Status).Render(r.Status.Emoji()+" "+r.Status.Label()))
	}
}

// Detail prints the panel of one instance.
func Detail(w io.Writer, d view.Detail) {
	fmt.Fprintln(w, SeverityStyle(d.Severity).Render(d.Severity.Emoji()+" "+d.Title))
	fmt.Fprintln(w, StatusStyle(d.Status).Render(d.Status.Emoji()+" "+d.Status.Label()))
	if d.Description != "" {
		fmt.Fprintln(w, MutedStyle.Render(d.Description))
	}
	for _, f := range d.Fields {
		if f.Code {
			fmt.Fprintln(w, LabelStyle.Render(f.Label))
			fmt.Fprintln(w, CodeStyle.Render(f.Value))
			continue
		}
		fmt.Fprintf(w, "%s %s\n", LabelStyle.Render(f.Label), f.Value)
	}
}

// SearchResults prints one page of a global instance search.
func SearchResults(w io.Writer, page *models.SearchPage) {
	if page == nil || len(page.Results) == 0 {
		fmt.Fprintln(w, MutedStyle.Render("No matches"))
		return
	}
	for _, h := range page.Results {
		fmt.Fprintf(w, "%-6d %s %-40s %s  %s  %s\n",
			h.InstanceID,
			SeverityStyle(h.Severity).Render(fmt.Sprintf("%-5s", h.Severity.Short())),
			view.Truncate(h.Title, view.TableTitleWidth),
			view.Truncate(h.URL, view.TableURLWidth),
			h.FixStatus.Emoji(),
			MutedStyle.Render(fmt.Sprintf("report #%d", h.ReportID)))
	}
	fmt.Fprintln(w, Pagination(view.Paginate(page.CurrentPage, page.Pages, page.Total)))
}

// Logs prints one page of the backend operation log.
func Logs(w io.Writer, page *models.LogPage) {
	if page == nil || len(page.Logs) == 0 {
		fmt.Fprintln(w, MutedStyle.Render("No log entries"))
		return
	}
	for _, l := range page.Logs {
		fmt.Fprintf(w, "%s  %-14s %s\n", MutedStyle.Render(view.FormatDate(l.CreatedAt)), view.Humanize(l.ActionType), l.Message)
	}
	fmt.Fprintln(w, Pagination(view.Paginate(page.CurrentPage, page.Pages, page.Total)))
}

func badges(bs []view.Badge) string {
	parts := make([]string, 0, len(bs))
	for _, b := range bs {
		parts = append(parts, SeverityStyle(b.Severity).Render(b.Text))
	}
	return strings.Join(parts, " ")
}
