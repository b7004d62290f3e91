package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hakim/vulntriage/internal/apiclient"
	"github.com/hakim/vulntriage/internal/notify"
	"github.com/hakim/vulntriage/internal/session"
	"github.com/sirupsen/logrus"
)

// Import uploads report files. One file goes through the single import
// endpoint and opens the new report; several go through the bulk endpoint.
func (a *App) Import(ctx context.Context, sid string, files []apiclient.File) (Outcome, error) {
	a.intent("import", "upload")

	switch len(files) {
	case 0:
		return Outcome{Redirect: ReportsPath}, a.report(sid, notify.KindWarning, "Choose at least one file")
	case 1:
		return a.importOne(ctx, sid, files[0])
	default:
		return a.importMany(ctx, sid, files)
	}
}

func (a *App) importOne(ctx context.Context, sid string, f apiclient.File) (Outcome, error) {
	out := Outcome{Redirect: ReportsPath}

	result, err := a.api.Import(ctx, f)
	if err == nil && !result.Success {
		err = errors.New(importError(result.Error))
	}
	if err != nil {
		a.log.WithError(err).WithField("file", f.Name).Warn("import failed")
		return out, a.report(sid, notify.KindError, apiclient.UserMessage(err))
	}

	a.log.WithFields(logrus.Fields{"file": f.Name, "report_id": result.ReportID}).Info("report imported")
	a.emit(ctx, notify.Event{
		Action:   notify.ActionImported,
		ReportID: result.ReportID,
		Count:    1,
		Message:  result.SiteURL,
	})

	if result.ReportID > 0 {
		out.Redirect = DetailPath(result.ReportID)
	}
	return out, a.update(sid, func(sess *session.Session) error {
		sess.Modals.Close(notify.ModalImport)
		a.notice(sess, notify.KindSuccess, "Imported: "+result.SiteURL)
		return nil
	})
}

func (a *App) importMany(ctx context.Context, sid string, files []apiclient.File) (Outcome, error) {
	out := Outcome{Redirect: ReportsPath}

	result, err := a.api.BulkImport(ctx, files)
	if err != nil {
		a.log.WithError(err).WithField("files", len(files)).Warn("bulk import failed")
		return out, a.report(sid, notify.KindError, apiclient.UserMessage(err))
	}

	for _, e := range result.Errors {
		a.log.WithFields(logrus.Fields{"file": e.File, "error": e.Error}).Warn("file rejected by bulk import")
	}
	if len(result.Imported) > 0 {
		a.emit(ctx, notify.Event{
			Action:  notify.ActionImported,
			Count:   len(result.Imported),
			Message: fmt.Sprintf("%d imported, %d failed", len(result.Imported), len(result.Errors)),
		})
	}

	kind := notify.KindSuccess
	if len(result.Errors) > 0 {
		kind = notify.KindWarning
	}
	msg := fmt.Sprintf("Imported %d, failed %d", len(result.Imported), len(result.Errors))

	return out, a.update(sid, func(sess *session.Session) error {
		sess.Modals.Close(notify.ModalImport)
		sess.List.Page = 1
		a.notice(sess, kind, msg)
		return nil
	})
}

func importError(msg string) string {
	if msg == "" {
		return "Import failed"
	}
	return msg
}
