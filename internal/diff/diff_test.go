package diff

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hakim/vulntriage/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func previousReport() *models.Report {
	return &models.Report{
		ID:      1,
		SiteURL: "https://shop.example",
		Vulnerabilities: []models.Vulnerability{
			{
				ID: 10, Severity: models.SeverityHigh, Title: "SQL Injection",
				Instances: []models.Instance{
					{ID: 100, URL: "https://shop.example/search", Method: "GET", Parameter: "q", FixStatus: models.StatusPending},
					{ID: 101, URL: "https://shop.example/item", Method: "GET", Parameter: "id", FixStatus: models.StatusPending},
				},
			},
			{
				ID: 11, Severity: models.SeverityLow, Title: "Cookie flag",
				Instances: []models.Instance{
					{ID: 110, URL: "https://shop.example/login", Method: "POST", FixStatus: models.StatusPending},
				},
			},
		},
	}
}

func currentReport() *models.Report {
	return &models.Report{
		ID:      2,
		SiteURL: "https://shop.example",
		Vulnerabilities: []models.Vulnerability{
			{
				ID: 20, Severity: models.SeverityHigh, Title: "SQL Injection",
				Instances: []models.Instance{
					{ID: 200, URL: "https://shop.example/search", Method: "GET", Parameter: "q", FixStatus: models.StatusFixed},
				},
			},
			{
				ID: 21, Severity: models.SeverityLow, Title: "Cookie flag",
				Instances: []models.Instance{
					{ID: 210, URL: "https://shop.example/login", Method: "POST", FixStatus: models.StatusPending},
				},
			},
			{
				ID: 22, Severity: models.SeverityMedium, Title: "Missing CSP",
				Instances: []models.Instance{
					{ID: 220, URL: "https://shop.example/", Method: "GET", FixStatus: models.StatusPending},
				},
			},
		},
	}
}

func TestFlatten(t *testing.T) {
	findings := Flatten(previousReport())

	require.Len(t, findings, 3)
	assert.Equal(t, 100, findings[0].InstanceID)
	assert.Equal(t, models.SeverityHigh, findings[0].Severity)
	assert.Equal(t, "q", findings[0].Parameter)
	assert.Equal(t, "Cookie flag", findings[2].Title)

	assert.NotNil(t, Flatten(nil))
	assert.Empty(t, Flatten(nil))
}

func TestComputeDiff(t *testing.T) {
	dr := ComputeDiff(currentReport(), previousReport())

	assert.Equal(t, ReportRef{ID: 2, Name: "https://shop.example"}, dr.Current)
	assert.Equal(t, ReportRef{ID: 1, Name: "https://shop.example"}, dr.Previous)

	require.Len(t, dr.NewFindings, 1)
	assert.Equal(t, "Missing CSP", dr.NewFindings[0].Title)

	require.Len(t, dr.ResolvedFindings, 1)
	assert.Equal(t, "https://shop.example/item", dr.ResolvedFindings[0].URL)

	require.Len(t, dr.StatusChanges, 1)
	change := dr.StatusChanges[0]
	assert.Equal(t, 200, change.Finding.InstanceID)
	assert.Equal(t, models.StatusPending, change.From)
	assert.Equal(t, models.StatusFixed, change.To)

	assert.Equal(t, 1, dr.Unchanged)
	assert.Equal(t, 3, dr.CurrentCount)
	assert.Equal(t, 3, dr.PreviousCount)
	assert.Equal(t, 1, dr.CurrentSeverity[models.SeverityMedium])
	assert.Equal(t, 2, dr.PreviousSeverity[models.SeverityHigh])
	assert.False(t, dr.Empty())
}

func TestComputeDiffIdenticalReports(t *testing.T) {
	dr := ComputeDiff(previousReport(), previousReport())

	assert.True(t, dr.Empty())
	assert.NotNil(t, dr.NewFindings)
	assert.NotNil(t, dr.ResolvedFindings)
	assert.NotNil(t, dr.StatusChanges)
	assert.Equal(t, 3, dr.Unchanged)
}

func TestComputeDiffAgainstNothing(t *testing.T) {
	dr := ComputeDiff(currentReport(), nil)

	require.Len(t, dr.NewFindings, 3)
	assert.Empty(t, dr.ResolvedFindings)
	assert.Equal(t, ReportRef{}, dr.Previous)

	// most severe first
	assert.Equal(t, models.SeverityHigh, dr.NewFindings[0].Severity)
	assert.Equal(t, models.SeverityMedium, dr.NewFindings[1].Severity)
	assert.Equal(t, models.SeverityLow, dr.NewFindings[2].Severity)
}

type stubFetcher struct {
	mu      sync.Mutex
	reports map[int]*models.Report
	fail    int
	seen    []int
}

func (s *stubFetcher) GetReport(ctx context.Context, id int) (*models.Report, error) {
	s.mu.Lock()
	s.seen = append(s.seen, id)
	s.mu.Unlock()

	if id == s.fail {
		return nil, errors.New("boom")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.reports[id], nil
}

func TestFetch(t *testing.T) {
	f := &stubFetcher{reports: map[int]*models.Report{1: previousReport(), 2: currentReport()}}

	current, previous, err := Fetch(context.Background(), f, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, current.ID)
	assert.Equal(t, 1, previous.ID)
	assert.ElementsMatch(t, []int{1, 2}, f.seen)
}

func TestFetchFailure(t *testing.T) {
	f := &stubFetcher{reports: map[int]*models.Report{2: currentReport()}, fail: 1}

	current, previous, err := Fetch(context.Background(), f, 2, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching report 1")
	assert.Nil(t, current)
	assert.Nil(t, previous)
}

func TestComputeDiffCountsDuplicateInstances(t *testing.T) {
	withDupes := &models.Report{
		ID: 3,
		Vulnerabilities: []models.Vulnerability{{
			ID: 30, Severity: models.SeverityHigh, Title: "XSS",
			Instances: []models.Instance{
				{ID: 300, URL: "https://shop.example/q", Method: "GET", Parameter: "s"},
				{ID: 301, URL: "https://shop.example/q", Method: "GET", Parameter: "s"},
			},
		}},
	}

	dr := ComputeDiff(withDupes, nil)

	assert.Equal(t, 2, dr.CurrentCount)
	assert.Equal(t, 2, dr.CurrentSeverity[models.SeverityHigh])
	assert.Len(t, dr.NewFindings, 1)
}
