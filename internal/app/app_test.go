package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hakim/vulntriage/internal/apiclient"
	"github.com/hakim/vulntriage/internal/models"
	"github.com/hakim/vulntriage/internal/notify"
	"github.com/hakim/vulntriage/internal/session"
	"github.com/hakim/vulntriage/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI records calls and answers from its fields.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	stats    *models.DashboardStats
	page     *models.ReportPage
	report   *models.Report
	err      error
	imported *models.ImportResult
	bulk     *models.BulkImportResult

	lastList   [3]any
	lastStatus models.StatusUpdate
	lastBatch  models.BatchStatusUpdate
	lastNotes  string
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) DashboardStats(context.Context) (*models.DashboardStats, error) {
	f.record("stats")
	return f.stats, f.err
}

func (f *fakeAPI) ListReports(_ context.Context, page, perPage int, search string) (*models.ReportPage, error) {
	f.record("list")
	f.lastList = [3]any{page, perPage, search}
	return f.page, f.err
}

func (f *fakeAPI) GetReport(context.Context, int) (*models.Report, error) {
	f.record("get")
	return f.report, f.err
}

func (f *fakeAPI) DeleteReport(context.Context, int) error {
	f.record("delete")
	return f.err
}

func (f *fakeAPI) UpdateNotes(_ context.Context, _ int, notes string) error {
	f.record("notes")
	f.lastNotes = notes
	return f.err
}

func (f *fakeAPI) UpdateInstanceStatus(_ context.Context, id int, u models.StatusUpdate) (*models.StatusResult, error) {
	f.record("status")
	f.lastStatus = u
	if f.err != nil {
		return nil, f.err
	}
	return &models.StatusResult{Success: true, InstanceID: id, Status: u.Status}, nil
}

func (f *fakeAPI) BatchUpdateStatus(_ context.Context, u models.BatchStatusUpdate) (*models.BatchResult, error) {
	f.record("batch")
	f.lastBatch = u
	if f.err != nil {
		return nil, f.err
	}
	return &models.BatchResult{Success: true, UpdatedCount: len(u.InstanceIDs)}, nil
}

func (f *fakeAPI) Import(context.Context, apiclient.File) (*models.ImportResult, error) {
	f.record("import")
	return f.imported, f.err
}

func (f *fakeAPI) BulkImport(context.Context, []apiclient.File) (*models.BulkImportResult, error) {
	f.record("bulk")
	return f.bulk, f.err
}

func sampleReport() *models.Report {
	return &models.Report{
		ID:      1,
		SiteURL: "https://shop.example",
		Vulnerabilities: []models.Vulnerability{
			{ID: 10, Severity: models.SeverityHigh, Title: "SQL Injection", InstanceCount: 2, Instances: []models.Instance{
				{ID: 100, URL: "https://shop.example/a", Method: "GET", FixStatus: models.StatusPending},
				{ID: 101, URL: "https://shop.example/b", FixStatus: models.StatusFixed},
			}},
			{ID: 11, Severity: models.SeverityLow, Title: "Cookie flag", InstanceCount: 1, Instances: []models.Instance{
				{ID: 110, URL: "https://shop.example/c", FixStatus: models.StatusPending},
			}},
		},
	}
}

type fixture struct {
	app     *App
	api     *fakeAPI
	store   *session.Store
	sid     string
	metrics *telemetry.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := session.NewStore(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sess, err := store.Create()
	require.NoError(t, err)

	metrics, err := telemetry.NewMetrics()
	require.NoError(t, err)

	api := &fakeAPI{report: sampleReport()}
	a := New(api, store, Options{PageSize: 20, RecentLimit: 5, NoticeTTL: time.Minute, Metrics: metrics})
	return &fixture{app: a, api: api, store: store, sid: sess.ID, metrics: metrics}
}

func (f *fixture) session(t *testing.T) *session.Session {
	t.Helper()
	sess, err := f.store.Get(f.sid)
	require.NoError(t, err)
	require.NotNil(t, sess)
	return sess
}

func (f *fixture) lastNotice(t *testing.T) notify.Notice {
	t.Helper()
	sess := f.session(t)
	require.NotEmpty(t, sess.Notices)
	return sess.Notices[len(sess.Notices)-1]
}

func TestDashboardLoad(t *testing.T) {
	f := newFixture(t)
	f.api.stats = &models.DashboardStats{
		TotalReports:  3,
		SeverityStats: map[string]int{"High": 1, "Low": 3},
		StatusStats:   map[string]int{"fixed": 1, "total": 4},
	}

	page, err := f.app.Dashboard(context.Background(), f.sid)
	require.NoError(t, err)
	assert.False(t, page.Failed)
	assert.Equal(t, 3, page.Dashboard.Counters[0].Value)
	assert.Empty(t, page.Notices)
	series, err := testutil.GatherAndCount(f.metrics.Registry(), "vulntriage_intents_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestDashboardFailureBecomesNotice(t *testing.T) {
	f := newFixture(t)
	f.api.err = &apiclient.RequestError{Status: 500, Message: "database locked"}

	page, err := f.app.Dashboard(context.Background(), f.sid)
	require.NoError(t, err)
	assert.True(t, page.Failed)
	require.Len(t, page.Notices, 1)
	assert.Equal(t, notify.KindError, page.Notices[0].Kind)
	assert.Equal(t, "Failed to load dashboard: database locked", page.Notices[0].Message)
}

func TestReportsUsesSessionListState(t *testing.T) {
	f := newFixture(t)
	f.api.page = &models.ReportPage{
		Reports:     []models.ReportSummary{{ID: 1, SiteURL: "https://a.example"}},
		Total:       41,
		Pages:       3,
		CurrentPage: 2,
	}

	_, err := f.app.Search(f.sid, "  shop ")
	require.NoError(t, err)
	out, err := f.app.GoToPage(f.sid, 2)
	require.NoError(t, err)
	assert.Equal(t, ReportsPath, out.Redirect)

	page, err := f.app.Reports(context.Background(), f.sid)
	require.NoError(t, err)
	assert.Equal(t, [3]any{2, 20, "shop"}, f.api.lastList)
	assert.Equal(t, "shop", page.List.Search)
	assert.Len(t, page.List.Rows, 1)

	_, err = f.app.ResetSearch(f.sid)
	require.NoError(t, err)
	assert.Equal(t, session.ListState{Page: 1}, f.session(t).List)
}

func TestReportsFailureShowsPlaceholder(t *testing.T) {
	f := newFixture(t)
	f.api.err = &apiclient.RequestError{Status: 0, Message: apiclient.FallbackMessage}

	page, err := f.app.Reports(context.Background(), f.sid)
	require.NoError(t, err)
	assert.True(t, page.Failed)
	assert.True(t, page.List.Empty())
	require.Len(t, page.Notices, 1)
	assert.Equal(t, "Failed to load reports: request failed", page.Notices[0].Message)
}

func TestDeleteFromListNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.app.DeleteFromList(ctx, f.sid, 9, false)
	require.NoError(t, err)
	assert.Empty(t, f.api.Calls())
	sess := f.session(t)
	assert.True(t, sess.Modals.IsOpen(notify.ModalConfirmDelete))
	assert.Equal(t, 9, sess.List.PendingDelete)

	require.NoError(t, f.app.CloseModals(f.sid))
	sess = f.session(t)
	assert.False(t, sess.Modals.IsOpen(notify.ModalConfirmDelete))
	assert.Zero(t, sess.List.PendingDelete)

	_, err = f.app.DeleteFromList(ctx, f.sid, 9, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"delete"}, f.api.Calls())
	assert.Equal(t, "Report deleted", f.lastNotice(t).Message)
}

func loadDetail(t *testing.T, f *fixture) *DetailPage {
	t.Helper()
	page, err := f.app.Detail(context.Background(), f.sid, 1)
	require.NoError(t, err)
	return page
}

func TestDetailLoadBuildsTreeAndRows(t *testing.T) {
	f := newFixture(t)
	page := loadDetail(t, f)

	assert.False(t, page.Failed)
	assert.False(t, page.Stale)
	require.Len(t, page.Tree.Groups, 2)
	assert.Equal(t, 3, page.Tree.Total)
	assert.Len(t, page.Rows, 3)
	assert.Nil(t, page.Active)
	assert.False(t, page.Selection.BatchVisible())

	sess := f.session(t)
	assert.Equal(t, []int{100, 101, 110}, sess.Detail.Rows)
	assert.Contains(t, sess.Detail.Branches, "severity-High")
	assert.Contains(t, sess.Detail.Branches, "vuln-10")
}

func TestDetailLoadFailure(t *testing.T) {
	f := newFixture(t)
	f.api.err = &apiclient.RequestError{Status: 404, Message: "Report not found"}

	page, err := f.app.Detail(context.Background(), f.sid, 999)
	require.NoError(t, err)
	assert.True(t, page.Failed)
	require.Len(t, page.Notices, 1)
	assert.Equal(t, "Failed to load report: Report not found", page.Notices[0].Message)
}

func TestDetailToggleAndBulkExpand(t *testing.T) {
	f := newFixture(t)
	loadDetail(t, f)

	_, err := f.app.Toggle(f.sid, 1, "vuln-10")
	require.NoError(t, err)
	page := loadDetail(t, f)
	for _, n := range page.Nodes {
		assert.NotEqual(t, 100, n.InstanceID, "collapsed children must be hidden")
	}

	_, err = f.app.CollapseAll(f.sid, 1)
	require.NoError(t, err)
	page = loadDetail(t, f)
	assert.Len(t, page.Nodes, 2)

	_, err = f.app.ExpandAll(f.sid, 1)
	require.NoError(t, err)
	page = loadDetail(t, f)
	assert.Len(t, page.Nodes, 7)

	_, err = f.app.Toggle(f.sid, 1, "not-a-node")
	require.NoError(t, err)
	assert.Empty(t, f.session(t).Detail.Tree.Collapsed)
}

func TestDetailSelectIsExclusive(t *testing.T) {
	f := newFixture(t)
	loadDetail(t, f)

	_, err := f.app.SelectInstance(f.sid, 1, 100)
	require.NoError(t, err)
	_, err = f.app.SelectInstance(f.sid, 1, 110)
	require.NoError(t, err)

	page := loadDetail(t, f)
	require.NotNil(t, page.Active)
	assert.Equal(t, 110, page.Active.InstanceID)
	assert.Equal(t, "Cookie flag", page.Active.Title)

	active := 0
	for _, n := range page.Nodes {
		if n.Active {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestDetailIntentsForOtherReportAreIgnored(t *testing.T) {
	f := newFixture(t)
	loadDetail(t, f)

	_, err := f.app.SelectInstance(f.sid, 2, 100)
	require.NoError(t, err)
	assert.Zero(t, f.session(t).Detail.Tree.Active)
}

func TestDetailCheckAndCheckAll(t *testing.T) {
	f := newFixture(t)
	loadDetail(t, f)

	_, err := f.app.Check(f.sid, 1, []int{101, 999})
	require.NoError(t, err)
	page := loadDetail(t, f)
	assert.Equal(t, []int{101}, page.Selection.IDs())
	assert.True(t, page.Selection.BatchVisible())
	assert.True(t, page.Checked(101))

	_, err = f.app.CheckAll(f.sid, 1, true)
	require.NoError(t, err)
	page = loadDetail(t, f)
	assert.Equal(t, len(page.Rows), page.Selection.Len())
	assert.True(t, page.AllChecked)

	_, err = f.app.CheckAll(f.sid, 1, false)
	require.NoError(t, err)
	page = loadDetail(t, f)
	assert.Zero(t, page.Selection.Len())
	assert.False(t, page.Selection.BatchVisible())
}

func TestUpdateStatusReloadsState(t *testing.T) {
	f := newFixture(t)
	loadDetail(t, f)
	_, err := f.app.SelectInstance(f.sid, 1, 100)
	require.NoError(t, err)
	_, err = f.app.OpenStatusModal(f.sid, 1, 100)
	require.NoError(t, err)

	page := loadDetail(t, f)
	require.NotNil(t, page.StatusForm)
	assert.Equal(t, models.StatusPending, page.StatusForm.Status)

	out, err := f.app.UpdateStatus(context.Background(), f.sid, 1, 100, "fixed", "alice", "patched")
	require.NoError(t, err)
	assert.Equal(t, "/reports/1", out.Redirect)
	assert.Equal(t, models.StatusUpdate{Status: models.StatusFixed, FixedBy: "alice", Notes: "patched"}, f.api.lastStatus)

	sess := f.session(t)
	assert.False(t, sess.Modals.IsOpen(notify.ModalStatus))
	assert.Zero(t, sess.Detail.Tree.Active)
	assert.Empty(t, sess.Detail.Rows)
	assert.Equal(t, "Status updated", f.lastNotice(t).Message)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	loadDetail(t, f)

	_, err := f.app.UpdateStatus(context.Background(), f.sid, 1, 100, "done", "", "")
	require.NoError(t, err)
	assert.NotContains(t, f.api.Calls(), "status")
	assert.Equal(t, notify.KindWarning, f.lastNotice(t).Kind)
}

func TestUpdateStatusFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	loadDetail(t, f)
	_, err := f.app.OpenStatusModal(f.sid, 1, 100)
	require.NoError(t, err)

	f.api.err = &apiclient.RequestError{Status: 404, Message: "Instance not found"}
	_, err = f.app.UpdateStatus(context.Background(), f.sid, 1, 100, "fixed", "", "")
	require.NoError(t, err)

	sess := f.session(t)
	assert.True(t, sess.Modals.IsOpen(notify.ModalStatus))
	assert.Equal(t, 100, sess.Detail.StatusModal)
	assert.Equal(t, "Update failed: Instance not found", f.lastNotice(t).Message)
}

func TestBatchUpdateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loadDetail(t, f)

	_, err := f.app.BatchUpdate(ctx, f.sid, 1, "fixed")
	require.NoError(t, err)
	assert.Equal(t, notify.KindWarning, f.lastNotice(t).Kind)
	assert.Equal(t, "Select at least one instance first", f.lastNotice(t).Message)

	_, err = f.app.Check(f.sid, 1, []int{100})
	require.NoError(t, err)
	_, err = f.app.BatchUpdate(ctx, f.sid, 1, "")
	require.NoError(t, err)
	assert.Equal(t, "Choose a status first", f.lastNotice(t).Message)

	assert.NotContains(t, f.api.Calls(), "batch")
}

func TestBatchUpdateSendsSelection(t *testing.T) {
	f := newFixture(t)
	loadDetail(t, f)
	_, err := f.app.Check(f.sid, 1, []int{110, 100})
	require.NoError(t, err)

	_, err = f.app.BatchUpdate(context.Background(), f.sid, 1, "wont_fix")
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusUpdate{InstanceIDs: []int{100, 110}, Status: models.StatusWontFix}, f.api.lastBatch)
	assert.Equal(t, "Updated 2 instances", f.lastNotice(t).Message)
	assert.Empty(t, f.session(t).Detail.Selected)
}

func TestSaveNotesKeepsViewState(t *testing.T) {
	f := newFixture(t)
	loadDetail(t, f)
	_, err := f.app.SelectInstance(f.sid, 1, 101)
	require.NoError(t, err)

	_, err = f.app.SaveNotes(context.Background(), f.sid, 1, "retest friday")
	require.NoError(t, err)
	assert.Equal(t, "retest friday", f.api.lastNotes)
	assert.Equal(t, 101, f.session(t).Detail.Tree.Active)
	assert.Equal(t, "Notes saved", f.lastNotice(t).Message)
}

func TestDeleteReportFromDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loadDetail(t, f)

	out, err := f.app.DeleteReport(ctx, f.sid, 1, false)
	require.NoError(t, err)
	assert.Equal(t, "/reports/1", out.Redirect)
	assert.NotContains(t, f.api.Calls(), "delete")
	assert.True(t, f.session(t).Modals.IsOpen(notify.ModalConfirmDelete))

	out, err = f.app.DeleteReport(ctx, f.sid, 1, true)
	require.NoError(t, err)
	assert.Equal(t, ReportsPath, out.Redirect)
	sess := f.session(t)
	assert.False(t, sess.Modals.IsOpen(notify.ModalConfirmDelete))
	assert.Zero(t, sess.Detail.ReportID)
}

func TestImportSingleAndBulk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.app.Import(ctx, f.sid, nil)
	require.NoError(t, err)
	assert.Equal(t, ReportsPath, out.Redirect)
	assert.Empty(t, f.api.Calls())

	f.api.imported = &models.ImportResult{Success: true, ReportID: 4, SiteURL: "https://new.example"}
	out, err = f.app.Import(ctx, f.sid, []apiclient.File{{Name: "a.json"}})
	require.NoError(t, err)
	assert.Equal(t, "/reports/4", out.Redirect)
	assert.Equal(t, "Imported: https://new.example", f.lastNotice(t).Message)

	f.api.bulk = &models.BulkImportResult{
		Imported: []models.ImportedFile{{File: "a.json", ReportID: 5}},
		Errors:   []models.ImportError{{File: "b.txt", Error: "not json"}},
	}
	out, err = f.app.Import(ctx, f.sid, []apiclient.File{{Name: "a.json"}, {Name: "b.txt"}})
	require.NoError(t, err)
	assert.Equal(t, ReportsPath, out.Redirect)
	assert.Equal(t, notify.KindWarning, f.lastNotice(t).Kind)
	assert.Equal(t, "Imported 1, failed 1", f.lastNotice(t).Message)
	assert.Equal(t, []string{"import", "bulk"}, f.api.Calls())
}

func TestImportRejectedByBackend(t *testing.T) {
	f := newFixture(t)
	f.api.imported = &models.ImportResult{Success: false, Error: "Invalid report format"}

	_, err := f.app.Import(context.Background(), f.sid, []apiclient.File{{Name: "x.json"}})
	require.NoError(t, err)
	assert.Equal(t, notify.KindError, f.lastNotice(t).Kind)
	assert.Equal(t, "Invalid report format", f.lastNotice(t).Message)
}

func TestWebhookReceivesStatusEvents(t *testing.T) {
	var mu sync.Mutex
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, r.Method)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	f := newFixture(t)
	f.app.webhook = &notify.Webhook{URL: srv.URL}
	loadDetail(t, f)

	_, err := f.app.UpdateStatus(context.Background(), f.sid, 1, 100, "fixed", "", "")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{http.MethodPost}, got)
}

func TestDismissNoticeAndExpiry(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.app.report(f.sid, notify.KindInfo, "hello"))
	n := f.lastNotice(t)

	require.NoError(t, f.app.DismissNotice(f.sid, n.ID))
	assert.Empty(t, f.session(t).Notices)

	require.NoError(t, f.app.report(f.sid, notify.KindInfo, "old"))
	f.app.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	frame, _, err := f.app.frame(f.sid)
	require.NoError(t, err)
	assert.Empty(t, frame.Notices)
}
