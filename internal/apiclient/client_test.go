package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hakim/vulntriage/internal/jsonutil"
	"github.com/hakim/vulntriage/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveAPICall(endpoint, method string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, method+" "+endpoint)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *recordingObserver) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	obs := &recordingObserver{}
	return New(Options{BaseURL: srv.URL, Prefix: "/api", Observer: obs}), obs
}

func TestDoPrefixesEndpoint(t *testing.T) {
	var gotPath string
	c, obs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `{"total_reports":3}`)
	})

	stats, err := c.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/api/dashboard/stats", gotPath)
	assert.Equal(t, 3, stats.TotalReports)
	assert.Nil(t, stats.SeverityStats)
	assert.Equal(t, []string{"GET /dashboard/stats"}, obs.calls)
}

func TestDoEncodesJSONBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/instances/42/status", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body models.StatusUpdate
		require.NoError(t, jsonutil.Decode(r.Body, &body))
		assert.Equal(t, models.StatusFixed, body.Status)
		assert.Equal(t, "alice", body.FixedBy)
		assert.Equal(t, "patched", body.Notes)

		_, _ = io.WriteString(w, `{"success":true,"instance_id":42,"status":"fixed"}`)
	})

	res, err := c.UpdateInstanceStatus(context.Background(), 42, models.StatusUpdate{
		Status:  models.StatusFixed,
		FixedBy: "alice",
		Notes:   "patched",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 42, res.InstanceID)
}

func TestDoSendsMultipartUnmodified(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary="))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["files"]
		require.Len(t, files, 2)
		assert.Equal(t, "a.xml", files[0].Filename)
		assert.Equal(t, "b.xml", files[1].Filename)
		_, _ = io.WriteString(w, `{"imported":[{"file":"a.xml","report_id":1,"site_url":"https://a"}],"errors":[{"file":"b.xml","error":"bad xml"}]}`)
	})

	res, err := c.BulkImport(context.Background(), []File{
		{Name: "/tmp/a.xml", Content: strings.NewReader("<a/>")},
		{Name: "b.xml", Content: strings.NewReader("<b")},
	})
	require.NoError(t, err)
	require.Len(t, res.Imported, 1)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "bad xml", res.Errors[0].Error)
}

func TestDoErrorMessageFromPayload(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"flat error", http.StatusNotFound, `{"error":"report not found"}`, "report not found"},
		{"nested error", http.StatusBadRequest, `{"error":{"message":"bad status"}}`, "bad status"},
		{"no error field", http.StatusInternalServerError, `{"detail":"boom"}`, FallbackMessage},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, FallbackMessage},
		{"empty body", http.StatusServiceUnavailable, ``, FallbackMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.GetReport(context.Background(), 999)
			require.Error(t, err)

			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tt.status, reqErr.Status)
			assert.Equal(t, tt.wantMsg, reqErr.Message)
			assert.Equal(t, tt.wantMsg, UserMessage(err))
		})
	}
}

func TestDoMalformedJSONOnSuccess(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	})

	_, err := c.GetReport(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, FallbackMessage, UserMessage(err))
}

func TestDoNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(Options{BaseURL: base, Prefix: "/api", Timeout: time.Second})
	err := c.DeleteReport(context.Background(), 7)
	require.Error(t, err)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, 0, reqErr.Status)
	assert.Equal(t, FallbackMessage, reqErr.Message)
	assert.NotNil(t, reqErr.Unwrap())
}

func TestListReportsQuery(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/reports", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("per_page"))
		assert.Equal(t, "shop example", r.URL.Query().Get("search"))
		_, _ = io.WriteString(w, `{"reports":[{"id":5,"site_url":"https://shop","stats":{"High":1}}],"total":21,"pages":2,"current_page":2}`)
	})

	page, err := c.ListReports(context.Background(), 2, 20, "shop example")
	require.NoError(t, err)
	require.Len(t, page.Reports, 1)
	assert.Equal(t, 1, page.Reports[0].Stats["High"])
	assert.Equal(t, 2, page.Pages)
}

func TestNotesRoundTrip(t *testing.T) {
	var (
		mu    sync.Mutex
		notes string
	)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			var body struct {
				Notes string `json:"notes"`
			}
			require.NoError(t, jsonutil.Decode(r.Body, &body))
			notes = body.Notes
			_, _ = io.WriteString(w, `{"success":true}`)
		default:
			out, err := jsonutil.Marshal(models.Report{ID: 7, Notes: notes})
			require.NoError(t, err)
			_, _ = w.Write(out)
		}
	})

	require.NoError(t, c.UpdateNotes(context.Background(), 7, "retest after deploy"))
	r, err := c.GetReport(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "retest after deploy", r.Notes)
}

func TestExportReportStreamsDownload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/export/3", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("include_status"))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="report_3_20240101.json"`)
		_, _ = io.WriteString(w, `{"report":{}}`)
	})

	dl, err := c.ExportReport(context.Background(), 3, true)
	require.NoError(t, err)
	defer dl.Body.Close()

	data, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "report_3_20240101.json", dl.Filename)
	assert.Equal(t, `{"report":{}}`, string(data))
}

func TestURLResolution(t *testing.T) {
	c := New(Options{BaseURL: "http://backend:10000/", Prefix: "/api/"})
	assert.Equal(t, "http://backend:10000/api", c.BaseURL())
	assert.Equal(t, "http://backend:10000/api/reports/1", c.URL("/reports/1"))
	assert.Equal(t, "http://backend:10000/api/reports/1", c.URL("reports/1"))
	assert.Equal(t, "https://elsewhere/x", c.URL("https://elsewhere/x"))

	for _, prefix := range []string{"api", "/api", "api/", "/api/"} {
		c := New(Options{BaseURL: "http://backend:10000", Prefix: prefix})
		assert.Equal(t, "http://backend:10000/api", c.BaseURL(), "prefix %q", prefix)
	}
	assert.Equal(t, "http://backend:10000", New(Options{BaseURL: "http://backend:10000/"}).BaseURL())
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/reports/{id}", routeLabel("/reports/12"))
	assert.Equal(t, "/reports/{id}/notes", routeLabel("reports/12/notes"))
	assert.Equal(t, "/reports", routeLabel("/reports?page=2"))
	assert.Equal(t, "/instances/batch-status", routeLabel("/instances/batch-status"))
	assert.Equal(t, "/a/{id}/{id}", routeLabel("/a/1/2"))
}

func TestTreeDecodesNestedNodes(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tree/5", r.URL.Path)
		_, _ = io.WriteString(w, `[{"id":"report-5","name":"https://a","type":"report","children":[
			{"id":"severity-5-Low","name":"Low","type":"severity","children":[
				{"id":"vuln-9","name":"Cookie","type":"vulnerability","instance_count":1,"children":[
					{"id":"instance-90","name":"https://a/x","type":"instance","status":"fixed"}]}]}]}]`)
	})

	nodes, err := c.Tree(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	vuln := nodes[0].Children[0].Children[0]
	assert.Equal(t, 1, vuln.InstanceCount)
	assert.Equal(t, models.StatusFixed, vuln.Children[0].Status)
}
