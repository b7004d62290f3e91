package app

import (
	"context"
	"strings"

	"github.com/hakim/vulntriage/internal/notify"
	"github.com/hakim/vulntriage/internal/session"
	"github.com/hakim/vulntriage/internal/view"
	"github.com/sirupsen/logrus"
)

// ReportsPage is the render model of the reports list
type ReportsPage struct {
	Frame
	List   view.ReportList
	Failed bool

	// PendingDelete is the report the confirm-delete modal asks about.
	PendingDelete int
}

// Reports loads the page and search term remembered in the session.
func (a *App) Reports(ctx context.Context, sid string) (*ReportsPage, error) {
	a.intent("reports", "load")

	_, sess, err := a.frame(sid)
	if err != nil {
		return nil, err
	}
	state := sess.List
	if state.Page < 1 {
		state.Page = 1
	}

	page := &ReportsPage{}
	result, err := a.api.ListReports(ctx, state.Page, a.pageSize, state.Search)
	if err != nil {
		a.log.WithError(err).WithField("page", state.Page).Warn("loading reports failed")
		page.Failed = true
		page.List = view.BuildReportList(nil, state.Search)
		if err := a.report(sid, notify.KindError, failure("Failed to load reports", err)); err != nil {
			return nil, err
		}
	} else {
		page.List = view.BuildReportList(result, state.Search)
	}

	frame, sess, err := a.frame(sid)
	if err != nil {
		return nil, err
	}
	page.Frame = frame
	if frame.Modal(notify.ModalConfirmDelete) {
		page.PendingDelete = sess.List.PendingDelete
	}
	return page, nil
}

// GoToPage moves the list to page.
func (a *App) GoToPage(sid string, page int) (Outcome, error) {
	a.intent("reports", "page")
	if page < 1 {
		page = 1
	}
	err := a.update(sid, func(sess *session.Session) error {
		sess.List.Page = page
		return nil
	})
	return Outcome{Redirect: ReportsPath}, err
}

// Search filters the list by site and restarts at page 1.
func (a *App) Search(sid, term string) (Outcome, error) {
	a.intent("reports", "search")
	err := a.update(sid, func(sess *session.Session) error {
		sess.List = session.ListState{Page: 1, Search: strings.TrimSpace(term)}
		return nil
	})
	return Outcome{Redirect: ReportsPath}, err
}

// ResetSearch clears the filter and returns to page 1.
func (a *App) ResetSearch(sid string) (Outcome, error) {
	a.intent("reports", "reset")
	err := a.update(sid, func(sess *session.Session) error {
		sess.List = session.ListState{Page: 1}
		return nil
	})
	return Outcome{Redirect: ReportsPath}, err
}

// DeleteFromList deletes a report from the list page. Without confirmation
// it only opens the confirm-delete modal and no request is made.
func (a *App) DeleteFromList(ctx context.Context, sid string, reportID int, confirmed bool) (Outcome, error) {
	a.intent("reports", "delete")
	out := Outcome{Redirect: ReportsPath}

	if !confirmed {
		return out, a.update(sid, func(sess *session.Session) error {
			sess.List.PendingDelete = reportID
			sess.Modals.Open(notify.ModalConfirmDelete)
			return nil
		})
	}

	err := a.api.DeleteReport(ctx, reportID)
	if err == nil {
		a.emit(ctx, notify.Event{Action: notify.ActionReportDeleted, ReportID: reportID})
	} else {
		a.log.WithError(err).WithField("report_id", reportID).Warn("deleting report failed")
	}

	return out, a.update(sid, func(sess *session.Session) error {
		sess.List.PendingDelete = 0
		sess.Modals.Close(notify.ModalConfirmDelete)
		if err != nil {
			a.notice(sess, notify.KindError, failure("Delete failed", err))
			return nil
		}
		if sess.Detail.ReportID == reportID {
			sess.Detail = session.DetailState{Generation: sess.Detail.Generation}
		}
		a.notice(sess, notify.KindSuccess, "Report deleted")
		a.log.WithFields(logrus.Fields{"report_id": reportID}).Info("report deleted")
		return nil
	})
}
