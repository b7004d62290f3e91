package session

import (
	"time"

	"github.com/hakim/vulntriage/internal/notify"
	"github.com/hakim/vulntriage/internal/view"
)

// ListState is the reports list view state
type ListState struct {
	Page   int    `json:"page"`
	Search string `json:"search,omitempty"`

	// PendingDelete is the report awaiting delete confirmation.
	PendingDelete int `json:"pending_delete,omitempty"`
}

// DetailState is the report detail view state. Branches and Rows are the
// node and row ids of the last committed load; visual intents are checked
// against them without re-fetching the report.
type DetailState struct {
	ReportID    int            `json:"report_id"`
	Generation  uint64         `json:"generation"`
	Tree        view.TreeState `json:"tree"`
	Selected    []int          `json:"selected,omitempty"`
	Branches    []string       `json:"branches,omitempty"`
	Rows        []int          `json:"rows,omitempty"`
	StatusModal int            `json:"status_modal,omitempty"`
}

// Selection returns the checked rows as a view selection.
func (d DetailState) Selection() view.Selection {
	return view.FromChecked(d.Rows, d.Selected)
}

// Reset discards everything but the report id and generation, as after a
// mutation that reloads the report.
func (d *DetailState) Reset() {
	*d = DetailState{ReportID: d.ReportID, Generation: d.Generation}
}

// Session is all view state of one browser
type Session struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	List      ListState      `json:"list"`
	Detail    DetailState    `json:"detail"`
	Notices   notify.Notices `json:"notices,omitempty"`
	Modals    notify.Modals  `json:"modals,omitempty"`
}
