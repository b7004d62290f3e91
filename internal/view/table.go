package view

import (
	"errors"
	"slices"
	"sort"

	"github.com/hakim/vulntriage/internal/models"
)

// Validation warnings for batch updates. They block the request and are
// shown as warnings, not errors.
var (
	ErrStatusRequired = errors.New("choose a status first")
	ErrEmptySelection = errors.New("select at least one instance first")
)

// Row is one line of the flat instance table
type Row struct {
	InstanceID int
	Severity   models.Severity
	Title      string
	TitleShort string
	URL        string
	URLShort   string
	Status     models.FixStatus
}

// Rows flattens vulnerabilities into table rows in report order.
func Rows(vulns []models.Vulnerability) []Row {
	rows := []Row{}
	for _, v := range vulns {
		for _, inst := range v.Instances {
			rows = append(rows, Row{
				InstanceID: inst.ID,
				Severity:   v.Severity,
				Title:      v.Title,
				TitleShort: Truncate(v.Title, TableTitleWidth),
				URL:        inst.URL,
				URLShort:   Truncate(inst.URL, TableURLWidth),
				Status:     inst.FixStatus,
			})
		}
	}
	return rows
}

// RowIDs returns the instance ids of rows in order.
func RowIDs(rows []Row) []int {
	ids := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = r.InstanceID
	}
	return ids
}

// Selection is the set of checked instance ids. The zero value is empty.
type Selection struct {
	ids map[int]struct{}
}

// NewSelection builds a selection from ids.
func NewSelection(ids ...int) Selection {
	s := Selection{ids: make(map[int]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// FromChecked recomputes the selection from the current checkbox state:
// only checked ids that belong to a visible row are kept.
func FromChecked(rowIDs []int, checked []int) Selection {
	s := NewSelection()
	for _, id := range checked {
		if slices.Contains(rowIDs, id) {
			s.ids[id] = struct{}{}
		}
	}
	return s
}

// ToggleAll drives every row checkbox in lockstep with the select-all box.
func ToggleAll(rowIDs []int, checked bool) Selection {
	if !checked {
		return NewSelection()
	}
	return NewSelection(rowIDs...)
}

// Has reports whether id is selected.
func (s Selection) Has(id int) bool {
	_, ok := s.ids[id]
	return ok
}

// Len is the number of selected instances.
func (s Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected ids in ascending order.
func (s Selection) IDs() []int {
	ids := make([]int, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// BatchVisible reports whether the batch-action control is shown.
func (s Selection) BatchVisible() bool {
	return s.Len() > 0
}

// AllChecked reports whether every row is selected, which drives the
// select-all checkbox.
func (s Selection) AllChecked(rowIDs []int) bool {
	if len(rowIDs) == 0 {
		return false
	}
	for _, id := range rowIDs {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

// ValidateBatch checks a batch update before any request is made.
func ValidateBatch(status string, sel Selection) (models.FixStatus, error) {
	if status == "" {
		return "", ErrStatusRequired
	}
	if sel.Len() == 0 {
		return "", ErrEmptySelection
	}
	return models.ParseFixStatus(status)
}
