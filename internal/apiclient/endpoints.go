package apiclient

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hakim/vulntriage/internal/models"
)

// DashboardStats fetches GET /dashboard/stats.
func (c *Client) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	if err := c.Do(ctx, "/dashboard/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListReports fetches one page of reports, optionally filtered by search.
func (c *Client) ListReports(ctx context.Context, page, perPage int, search string) (*models.ReportPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	if search != "" {
		q.Set("search", search)
	}

	var out models.ReportPage
	if err := c.Do(ctx, "/reports?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReport fetches a full report including vulnerabilities and instances.
func (c *Client) GetReport(ctx context.Context, id int) (*models.Report, error) {
	var out models.Report
	if err := c.Do(ctx, fmt.Sprintf("/reports/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteReport removes a report and everything it owns.
func (c *Client) DeleteReport(ctx context.Context, id int) error {
	return c.Do(ctx, fmt.Sprintf("/reports/%d", id), &RequestConfig{Method: http.MethodDelete}, nil)
}

// UpdateNotes replaces the free-text notes of a report.
func (c *Client) UpdateNotes(ctx context.Context, id int, notes string) error {
	return c.Do(ctx, fmt.Sprintf("/reports/%d/notes", id), &RequestConfig{
		Method: http.MethodPut,
		Body:   map[string]string{"notes": notes},
	}, nil)
}

// UpdateInstanceStatus changes the fix status of a single instance.
func (c *Client) UpdateInstanceStatus(ctx context.Context, id int, update models.StatusUpdate) (*models.StatusResult, error) {
	var out models.StatusResult
	err := c.Do(ctx, fmt.Sprintf("/instances/%d/status", id), &RequestConfig{
		Method: http.MethodPut,
		Body:   update,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// BatchUpdateStatus applies one status to many instances.
func (c *Client) BatchUpdateStatus(ctx context.Context, update models.BatchStatusUpdate) (*models.BatchResult, error) {
	var out models.BatchResult
	err := c.Do(ctx, "/instances/batch-status", &RequestConfig{
		Method: http.MethodPut,
		Body:   update,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Import uploads a single report file under the "file" field.
func (c *Client) Import(ctx context.Context, f File) (*models.ImportResult, error) {
	body, err := NewMultipart("file", []File{f})
	if err != nil {
		return nil, err
	}

	var out models.ImportResult
	if err := c.Do(ctx, "/import", &RequestConfig{Method: http.MethodPost, Body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkImport uploads several report files under the "files" field.
func (c *Client) BulkImport(ctx context.Context, files []File) (*models.BulkImportResult, error) {
	body, err := NewMultipart("files", files)
	if err != nil {
		return nil, err
	}

	var out models.BulkImportResult
	if err := c.Do(ctx, "/import/bulk", &RequestConfig{Method: http.MethodPost, Body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search queries instances across every report.
func (c *Client) Search(ctx context.Context, query models.SearchQuery) (*models.SearchPage, error) {
	q := url.Values{}
	q.Set("q", query.Query)
	if query.Severity != "" {
		q.Set("severity", string(query.Severity))
	}
	if query.Status != "" {
		q.Set("status", string(query.Status))
	}
	if query.Page > 0 {
		q.Set("page", strconv.Itoa(query.Page))
	}
	if query.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(query.PerPage))
	}

	var out models.SearchPage
	if err := c.Do(ctx, "/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logs fetches one page of the backend operation log, optionally filtered
// by action type.
func (c *Client) Logs(ctx context.Context, page, perPage int, actionType string) (*models.LogPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	if actionType != "" {
		q.Set("type", actionType)
	}

	var out models.LogPage
	if err := c.Do(ctx, "/logs?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tree fetches the backend's pre-built tree for one report.
func (c *Client) Tree(ctx context.Context, reportID int) ([]models.TreeNode, error) {
	var out []models.TreeNode
	if err := c.Do(ctx, fmt.Sprintf("/tree/%d", reportID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Download is a streamed file response. The caller must close Body.
type Download struct {
	Filename    string
	ContentType string
	Body        io.ReadCloser
}

// ExportReport starts the JSON export download of a report.
func (c *Client) ExportReport(ctx context.Context, id int, includeStatus bool) (*Download, error) {
	endpoint := fmt.Sprintf("/export/%d?include_status=%t", id, includeStatus)
	resp, err := c.send(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		msg := errorMessage(body)
		if msg == "" {
			msg = FallbackMessage
		}
		return nil, c.requestError(http.MethodGet, endpoint, resp.StatusCode, msg, nil)
	}

	filename := fmt.Sprintf("report_%d.json", id)
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			filename = params["filename"]
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}

	return &Download{Filename: filename, ContentType: contentType, Body: resp.Body}, nil
}
