// Package app dispatches the intents of the three dashboard views. Every
// intent performs its side effect against the backend and the session
// store, turns its own failures into notices, and leaves rendering to a
// pure function of the resulting state.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hakim/vulntriage/internal/apiclient"
	"github.com/hakim/vulntriage/internal/models"
	"github.com/hakim/vulntriage/internal/notify"
	"github.com/hakim/vulntriage/internal/session"
	"github.com/hakim/vulntriage/internal/telemetry"
	"github.com/sirupsen/logrus"
)

// API is the subset of the backend client the views use.
type API interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	ListReports(ctx context.Context, page, perPage int, search string) (*models.ReportPage, error)
	GetReport(ctx context.Context, id int) (*models.Report, error)
	DeleteReport(ctx context.Context, id int) error
	UpdateNotes(ctx context.Context, id int, notes string) error
	UpdateInstanceStatus(ctx context.Context, id int, update models.StatusUpdate) (*models.StatusResult, error)
	BatchUpdateStatus(ctx context.Context, update models.BatchStatusUpdate) (*models.BatchResult, error)
	Import(ctx context.Context, f apiclient.File) (*models.ImportResult, error)
	BulkImport(ctx context.Context, files []apiclient.File) (*models.BulkImportResult, error)
}

// Sessions is the view-state store.
type Sessions interface {
	Get(id string) (*session.Session, error)
	Update(id string, fn func(*session.Session) error) error
	BeginLoad(id string, reportID int) (uint64, error)
	CommitLoad(id string, gen uint64, fn func(*session.Session)) (bool, error)
}

// Options configures an App
type Options struct {
	PageSize    int
	RecentLimit int
	NoticeTTL   time.Duration

	Webhook *notify.Webhook
	Metrics *telemetry.Metrics
	Logger  *logrus.Logger
}

// App holds the view controllers. It keeps no per-user state of its own.
type App struct {
	api      API
	sessions Sessions

	pageSize    int
	recentLimit int
	noticeTTL   time.Duration

	webhook *notify.Webhook
	metrics *telemetry.Metrics
	log     *logrus.Logger
	now     func() time.Time
}

// New creates an App.
func New(api API, sessions Sessions, opts Options) *App {
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &App{
		api:         api,
		sessions:    sessions,
		pageSize:    opts.PageSize,
		recentLimit: opts.RecentLimit,
		noticeTTL:   opts.NoticeTTL,
		webhook:     opts.Webhook,
		metrics:     opts.Metrics,
		log:         logger,
		now:         time.Now,
	}
}

// Outcome tells the caller where to go after a state-changing intent.
type Outcome struct {
	Redirect string
}

// Frame is the state every page renders around its content.
type Frame struct {
	Notices notify.Notices
	Modals  notify.Modals
}

// Modal reports whether the modal with id is open.
func (f Frame) Modal(id string) bool {
	return f.Modals.IsOpen(id)
}

// Paths of the pages intents redirect to.
const (
	DashboardPath = "/"
	ReportsPath   = "/reports"
)

// DetailPath is the page of one report.
func DetailPath(id int) string {
	return fmt.Sprintf("/reports/%d", id)
}

// frame reads the notices and modals of a session.
func (a *App) frame(sid string) (Frame, *session.Session, error) {
	sess, err := a.sessions.Get(sid)
	if err != nil {
		return Frame{}, nil, fmt.Errorf("reading session: %w", err)
	}
	if sess == nil {
		return Frame{}, nil, fmt.Errorf("%w: %s", session.ErrNotFound, sid)
	}
	return Frame{
		Notices: sess.Notices.Active(a.now(), a.noticeTTL),
		Modals:  sess.Modals,
	}, sess, nil
}

// update wraps Sessions.Update, pruning expired notices on every write.
func (a *App) update(sid string, fn func(*session.Session) error) error {
	return a.sessions.Update(sid, func(sess *session.Session) error {
		sess.Notices.Prune(a.now(), a.noticeTTL)
		return fn(sess)
	})
}

// notice adds a notice to sess and counts it.
func (a *App) notice(sess *session.Session, kind notify.Kind, msg string) {
	sess.Notices.Push(kind, msg, a.now())
	a.metrics.NoticeShown(string(kind))
}

// report records a notice outside of any other state change.
func (a *App) report(sid string, kind notify.Kind, msg string) error {
	return a.update(sid, func(sess *session.Session) error {
		a.notice(sess, kind, msg)
		return nil
	})
}

func (a *App) intent(view, name string) {
	a.metrics.IntentDispatched(view, name)
}

// emit posts a webhook event. Delivery failures are only logged.
func (a *App) emit(ctx context.Context, ev notify.Event) {
	if err := a.webhook.Send(ctx, ev); err != nil {
		a.log.WithError(err).WithField("action", ev.Action).Warn("webhook delivery failed")
	}
}

// DismissNotice removes a notice before it expires.
func (a *App) DismissNotice(sid, noticeID string) error {
	return a.update(sid, func(sess *session.Session) error {
		sess.Notices.Dismiss(noticeID)
		return nil
	})
}

// CloseModals closes every open modal, as the escape key does.
func (a *App) CloseModals(sid string) error {
	return a.update(sid, func(sess *session.Session) error {
		sess.Modals.Escape()
		sess.Detail.StatusModal = 0
		sess.List.PendingDelete = 0
		return nil
	})
}

// OpenImport opens the import modal.
func (a *App) OpenImport(sid string) error {
	return a.update(sid, func(sess *session.Session) error {
		sess.Modals.Open(notify.ModalImport)
		return nil
	})
}

func failure(prefix string, err error) string {
	return prefix + ": " + apiclient.UserMessage(err)
}
