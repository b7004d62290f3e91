package view

import "github.com/hakim/vulntriage/internal/models"

// ReportRow is one line of the reports table
type ReportRow struct {
	ID       int
	Site     string
	HasNotes bool
	Imported string
	Badges   []Badge
}

// ReportList is the render model of the reports page
type ReportList struct {
	Rows       []ReportRow
	Search     string
	Pagination Pagination
}

// Empty reports whether the page has no rows.
func (l ReportList) Empty() bool {
	return len(l.Rows) == 0
}

// BuildReportList converts one backend page into table rows and footer.
func BuildReportList(page *models.ReportPage, search string) ReportList {
	if page == nil {
		page = &models.ReportPage{}
	}

	list := ReportList{
		Search:     search,
		Pagination: Paginate(page.CurrentPage, page.Pages, page.Total),
	}
	for _, r := range page.Reports {
		list.Rows = append(list.Rows, ReportRow{
			ID:       r.ID,
			Site:     r.DisplayName(),
			HasNotes: r.Notes != "",
			Imported: FormatDate(r.ImportedAt),
			Badges:   Badges(r.Stats, true),
		})
	}
	return list
}
