package view

import (
	"testing"

	"github.com/hakim/vulntriage/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReportList(t *testing.T) {
	page := &models.ReportPage{
		Reports: []models.ReportSummary{
			{ID: 3, SiteURL: "https://a.example", Notes: "retest", Stats: map[string]int{"High": 2}},
			{ID: 2, FileName: "scan.xml"},
			{ID: 1},
		},
		Total:       43,
		Pages:       3,
		CurrentPage: 2,
	}

	list := BuildReportList(page, "example")
	require.Len(t, list.Rows, 3)
	assert.False(t, list.Empty())
	assert.Equal(t, "https://a.example", list.Rows[0].Site)
	assert.True(t, list.Rows[0].HasNotes)
	assert.Equal(t, "High: 2", list.Rows[0].Badges[0].Text)
	assert.Equal(t, "scan.xml", list.Rows[1].Site)
	assert.Equal(t, "unknown", list.Rows[2].Site)
	assert.Equal(t, "-", list.Rows[2].Imported)
	assert.Empty(t, list.Rows[2].Badges)
	assert.Equal(t, "example", list.Search)
	assert.Equal(t, []int{1, 2, 3}, list.Pagination.Buttons())
}

func TestBuildReportListEmpty(t *testing.T) {
	list := BuildReportList(nil, "")
	assert.True(t, list.Empty())
	assert.False(t, list.Pagination.Show)
}
