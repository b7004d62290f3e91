package app

import (
	"context"
	"fmt"
	"slices"
	"unicode"
	"unicode/utf8"

	"github.com/hakim/vulntriage/internal/models"
	"github.com/hakim/vulntriage/internal/notify"
	"github.com/hakim/vulntriage/internal/session"
	"github.com/hakim/vulntriage/internal/view"
	"github.com/sirupsen/logrus"
)

// DetailPage is the render model of one report
type DetailPage struct {
	Frame
	ReportID int
	Failed   bool

	// Stale is set when a newer load of the same session overtook this one.
	// The page still renders, but its ids were not committed.
	Stale bool

	Report   *models.Report
	Name     string
	Imported string

	Tree  view.Tree
	Nodes []view.VisibleNode

	Rows         []view.Row
	Selection    view.Selection
	AllChecked   bool
	BatchOptions []view.StatusOption

	Active     *view.Detail
	StatusForm *view.StatusForm
}

// Checked reports whether the row of instanceID is ticked.
func (p *DetailPage) Checked(instanceID int) bool {
	return p.Selection.Has(instanceID)
}

// Detail loads reportID and renders it with the session's view state.
func (a *App) Detail(ctx context.Context, sid string, reportID int) (*DetailPage, error) {
	a.intent("detail", "load")
	logger := a.log.WithFields(logrus.Fields{"report_id": reportID})

	gen, err := a.sessions.BeginLoad(sid, reportID)
	if err != nil {
		return nil, fmt.Errorf("starting report load: %w", err)
	}

	page := &DetailPage{ReportID: reportID}
	report, err := a.api.GetReport(ctx, reportID)
	if err != nil {
		logger.WithError(err).Warn("loading report failed")
		page.Failed = true
		if err := a.report(sid, notify.KindError, failure("Failed to load report", err)); err != nil {
			return nil, err
		}
		frame, _, err := a.frame(sid)
		if err != nil {
			return nil, err
		}
		page.Frame = frame
		return page, nil
	}

	tree := view.BuildTree(report.Vulnerabilities)
	rows := view.Rows(report.Vulnerabilities)
	rowIDs := view.RowIDs(rows)
	branches := tree.BranchIDs()

	applied, err := a.sessions.CommitLoad(sid, gen, func(sess *session.Session) {
		d := &sess.Detail
		d.Branches = branches
		d.Rows = rowIDs
		d.Tree.Prune(branches, rowIDs)
		d.Selected = d.Selection().IDs()
		if d.StatusModal != 0 && !slices.Contains(rowIDs, d.StatusModal) {
			d.StatusModal = 0
			sess.Modals.Close(notify.ModalStatus)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("committing report load: %w", err)
	}
	if !applied {
		logger.WithField("generation", gen).Debug("discarding stale report load")
		page.Stale = true
	}

	frame, sess, err := a.frame(sid)
	if err != nil {
		return nil, err
	}
	state := sess.Detail
	if state.ReportID != reportID {
		state = session.DetailState{ReportID: reportID, Rows: rowIDs}
	}

	page.Frame = frame
	page.Report = report
	page.Name = report.DisplayName()
	page.Imported = view.FormatDate(report.ImportedAt)
	page.Tree = tree
	page.Nodes = tree.Visible(state.Tree)
	page.Rows = rows
	page.Selection = view.FromChecked(rowIDs, state.Selected)
	page.AllChecked = page.Selection.AllChecked(rowIDs)
	page.BatchOptions = view.StatusOptions("")

	if state.Tree.Active != 0 {
		if d, ok := view.InstanceDetail(report, state.Tree.Active); ok {
			page.Active = &d
		}
	}
	if frame.Modal(notify.ModalStatus) && state.StatusModal != 0 {
		if form, ok := view.NewStatusForm(report, state.StatusModal); ok {
			page.StatusForm = &form
		}
	}

	return page, nil
}

// visual applies a view-only intent. Intents for a report other than the
// one last loaded are ignored.
func (a *App) visual(sid string, reportID int, name string, fn func(*session.Session)) (Outcome, error) {
	a.intent("detail", name)
	err := a.update(sid, func(sess *session.Session) error {
		if sess.Detail.ReportID != reportID {
			return nil
		}
		fn(sess)
		return nil
	})
	return Outcome{Redirect: DetailPath(reportID)}, err
}

// Toggle expands or collapses one tree node.
func (a *App) Toggle(sid string, reportID int, nodeID string) (Outcome, error) {
	return a.visual(sid, reportID, "toggle", func(sess *session.Session) {
		sess.Detail.Tree.Toggle(sess.Detail.Branches, nodeID)
	})
}

// ExpandAll expands every tree node.
func (a *App) ExpandAll(sid string, reportID int) (Outcome, error) {
	return a.visual(sid, reportID, "expand_all", func(sess *session.Session) {
		sess.Detail.Tree.ExpandAll()
	})
}

// CollapseAll collapses every tree node.
func (a *App) CollapseAll(sid string, reportID int) (Outcome, error) {
	return a.visual(sid, reportID, "collapse_all", func(sess *session.Session) {
		sess.Detail.Tree.CollapseAll(sess.Detail.Branches)
	})
}

// SelectInstance makes instanceID the active leaf and shows its details.
func (a *App) SelectInstance(sid string, reportID, instanceID int) (Outcome, error) {
	return a.visual(sid, reportID, "select", func(sess *session.Session) {
		sess.Detail.Tree.Select(sess.Detail.Rows, instanceID)
	})
}

// Check replaces the batch selection with the ticked rows.
func (a *App) Check(sid string, reportID int, checked []int) (Outcome, error) {
	return a.visual(sid, reportID, "check", func(sess *session.Session) {
		sess.Detail.Selected = view.FromChecked(sess.Detail.Rows, checked).IDs()
	})
}

// CheckAll ticks or clears every row.
func (a *App) CheckAll(sid string, reportID int, checked bool) (Outcome, error) {
	return a.visual(sid, reportID, "check_all", func(sess *session.Session) {
		sess.Detail.Selected = view.ToggleAll(sess.Detail.Rows, checked).IDs()
	})
}

// OpenStatusModal opens the single-instance status form for instanceID.
func (a *App) OpenStatusModal(sid string, reportID, instanceID int) (Outcome, error) {
	return a.visual(sid, reportID, "open_status", func(sess *session.Session) {
		if !slices.Contains(sess.Detail.Rows, instanceID) {
			return
		}
		sess.Detail.StatusModal = instanceID
		sess.Modals.Open(notify.ModalStatus)
	})
}

// UpdateStatus changes the status of one instance. On success the view
// state is discarded and the next render reloads the whole report.
func (a *App) UpdateStatus(ctx context.Context, sid string, reportID, instanceID int, status, fixedBy, notes string) (Outcome, error) {
	a.intent("detail", "update_status")
	out := Outcome{Redirect: DetailPath(reportID)}

	parsed, err := models.ParseFixStatus(status)
	if err != nil {
		return out, a.report(sid, notify.KindWarning, sentence(err))
	}

	_, err = a.api.UpdateInstanceStatus(ctx, instanceID, models.StatusUpdate{
		Status:  parsed,
		FixedBy: fixedBy,
		Notes:   notes,
	})
	if err != nil {
		a.log.WithError(err).WithField("instance_id", instanceID).Warn("status update failed")
		return out, a.report(sid, notify.KindError, failure("Update failed", err))
	}

	a.emit(ctx, notify.Event{
		Action:      notify.ActionStatusUpdated,
		ReportID:    reportID,
		InstanceIDs: []int{instanceID},
		Status:      string(parsed),
		Count:       1,
	})

	return out, a.update(sid, func(sess *session.Session) error {
		sess.Modals.Close(notify.ModalStatus)
		sess.Detail.Reset()
		a.notice(sess, notify.KindSuccess, "Status updated")
		return nil
	})
}

// BatchUpdate applies status to every selected instance. A missing status
// or an empty selection is a warning and no request is made.
func (a *App) BatchUpdate(ctx context.Context, sid string, reportID int, status string) (Outcome, error) {
	a.intent("detail", "batch_update")
	out := Outcome{Redirect: DetailPath(reportID)}

	_, sess, err := a.frame(sid)
	if err != nil {
		return out, err
	}
	sel := view.NewSelection()
	if sess.Detail.ReportID == reportID {
		sel = sess.Detail.Selection()
	}

	parsed, err := view.ValidateBatch(status, sel)
	if err != nil {
		return out, a.report(sid, notify.KindWarning, sentence(err))
	}

	ids := sel.IDs()
	result, err := a.api.BatchUpdateStatus(ctx, models.BatchStatusUpdate{InstanceIDs: ids, Status: parsed})
	if err != nil {
		a.log.WithError(err).WithField("count", len(ids)).Warn("batch status update failed")
		return out, a.report(sid, notify.KindError, failure("Batch update failed", err))
	}

	updated := len(ids)
	if result != nil && result.UpdatedCount > 0 {
		updated = result.UpdatedCount
	}

	a.emit(ctx, notify.Event{
		Action:      notify.ActionBatchUpdated,
		ReportID:    reportID,
		InstanceIDs: ids,
		Status:      string(parsed),
		Count:       updated,
	})

	return out, a.update(sid, func(sess *session.Session) error {
		sess.Detail.Reset()
		a.notice(sess, notify.KindSuccess, fmt.Sprintf("Updated %s instances", view.FormatCount(updated)))
		return nil
	})
}

// SaveNotes replaces the report notes. View state is kept.
func (a *App) SaveNotes(ctx context.Context, sid string, reportID int, notes string) (Outcome, error) {
	a.intent("detail", "save_notes")
	out := Outcome{Redirect: DetailPath(reportID)}

	if err := a.api.UpdateNotes(ctx, reportID, notes); err != nil {
		a.log.WithError(err).WithField("report_id", reportID).Warn("saving notes failed")
		return out, a.report(sid, notify.KindError, failure("Save failed", err))
	}

	a.emit(ctx, notify.Event{Action: notify.ActionNotesSaved, ReportID: reportID})
	return out, a.report(sid, notify.KindSuccess, "Notes saved")
}

// DeleteReport deletes the report being viewed. Without confirmation it only
// opens the confirm-delete modal; no request is made.
func (a *App) DeleteReport(ctx context.Context, sid string, reportID int, confirmed bool) (Outcome, error) {
	a.intent("detail", "delete")

	if !confirmed {
		return Outcome{Redirect: DetailPath(reportID)}, a.update(sid, func(sess *session.Session) error {
			sess.Modals.Open(notify.ModalConfirmDelete)
			return nil
		})
	}

	if err := a.api.DeleteReport(ctx, reportID); err != nil {
		a.log.WithError(err).WithField("report_id", reportID).Warn("deleting report failed")
		return Outcome{Redirect: DetailPath(reportID)}, a.update(sid, func(sess *session.Session) error {
			sess.Modals.Close(notify.ModalConfirmDelete)
			a.notice(sess, notify.KindError, failure("Delete failed", err))
			return nil
		})
	}

	a.emit(ctx, notify.Event{Action: notify.ActionReportDeleted, ReportID: reportID})
	return Outcome{Redirect: ReportsPath}, a.update(sid, func(sess *session.Session) error {
		sess.Modals.Close(notify.ModalConfirmDelete)
		sess.Detail = session.DetailState{Generation: sess.Detail.Generation}
		a.notice(sess, notify.KindSuccess, "Report deleted")
		return nil
	})
}

// MissingReport handles a detail request without a usable report id.
func (a *App) MissingReport(sid string) (Outcome, error) {
	return Outcome{Redirect: ReportsPath}, a.report(sid, notify.KindError, "Missing report id")
}

// sentence capitalises an error message for display.
func sentence(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}
