package view

// PageItem is one pagination control: a page button or an ellipsis.
type PageItem struct {
	Page     int
	Current  bool
	Ellipsis bool
}

// Pagination is the footer of a paged list
type Pagination struct {
	Total   int
	Pages   int
	Current int

	// Show is false when everything fits on one page; only the count is
	// rendered then.
	Show  bool
	Items []PageItem

	Prev, Next                 int
	PrevDisabled, NextDisabled bool
}

// pageWindow is how many pages either side of the current page get a button.
const pageWindow = 2

// Paginate lays out the controls for current of pages. Page 1, the last
// page and current±2 get buttons; an ellipsis stands in for each gap,
// placed exactly at current-3 and current+3.
func Paginate(current, pages, total int) Pagination {
	p := Pagination{
		Total:   total,
		Pages:   pages,
		Current: current,
		Show:    pages > 1,
	}
	if !p.Show {
		return p
	}

	for i := 1; i <= pages; i++ {
		switch {
		case i == 1 || i == pages || (i >= current-pageWindow && i <= current+pageWindow):
			p.Items = append(p.Items, PageItem{Page: i, Current: i == current})
		case i == current-pageWindow-1 || i == current+pageWindow+1:
			p.Items = append(p.Items, PageItem{Ellipsis: true})
		}
	}

	p.Prev = current - 1
	p.Next = current + 1
	p.PrevDisabled = current <= 1
	p.NextDisabled = current >= pages
	return p
}

// Buttons returns just the page numbers that have buttons.
func (p Pagination) Buttons() []int {
	var out []int
	for _, it := range p.Items {
		if !it.Ellipsis {
			out = append(out, it.Page)
		}
	}
	return out
}
