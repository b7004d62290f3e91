package models

// DashboardStats is the payload of GET /dashboard/stats
type DashboardStats struct {
	TotalReports         int             `json:"total_reports"`
	TotalVulnerabilities int             `json:"total_vulnerabilities"`
	TotalInstances       int             `json:"total_instances"`
	SeverityStats        map[string]int  `json:"severity_stats"`
	StatusStats          map[string]int  `json:"status_stats"`
	RecentReports        []ReportSummary `json:"recent_reports"`
}

// ReportPage is one page of GET /reports
type ReportPage struct {
	Reports     []ReportSummary `json:"reports"`
	Total       int             `json:"total"`
	Pages       int             `json:"pages"`
	CurrentPage int             `json:"current_page"`
}

// StatusUpdate is the body of PUT /instances/{id}/status
type StatusUpdate struct {
	Status  FixStatus `json:"status"`
	FixedBy string    `json:"fixed_by"`
	Notes   string    `json:"notes"`
}

// BatchStatusUpdate is the body of PUT /instances/batch-status
type BatchStatusUpdate struct {
	InstanceIDs []int     `json:"instance_ids"`
	Status      FixStatus `json:"status"`
}

// StatusResult is the reply to a single status update
type StatusResult struct {
	Success    bool      `json:"success"`
	InstanceID int       `json:"instance_id"`
	Status     FixStatus `json:"status"`
}

// BatchResult is the reply to a batch status update
type BatchResult struct {
	Success      bool `json:"success"`
	UpdatedCount int  `json:"updated_count"`
}

// ImportResult is the reply to POST /import
type ImportResult struct {
	Success  bool   `json:"success"`
	ReportID int    `json:"report_id"`
	SiteURL  string `json:"site_url"`
	Message  string `json:"message"`
	Error    string `json:"error"`
}

// ImportedFile is one successful entry of a bulk import
type ImportedFile struct {
	File     string `json:"file"`
	ReportID int    `json:"report_id"`
	SiteURL  string `json:"site_url"`
}

// ImportError is one failed entry of a bulk import
type ImportError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// BulkImportResult is the reply to POST /import/bulk
type BulkImportResult struct {
	Imported []ImportedFile `json:"imported"`
	Errors   []ImportError  `json:"errors"`
}

// SearchQuery filters GET /search
type SearchQuery struct {
	Query    string
	Severity Severity
	Status   FixStatus
	Page     int
	PerPage  int
}

// SearchHit is one instance matched by a search
type SearchHit struct {
	InstanceID int       `json:"instance_id"`
	URL        string    `json:"url"`
	Severity   Severity  `json:"severity"`
	Title      string    `json:"title"`
	FixStatus  FixStatus `json:"fix_status"`
	ReportID   int       `json:"report_id"`
	SiteURL    string    `json:"site_url"`
}

// SearchPage is one page of GET /search
type SearchPage struct {
	Results     []SearchHit `json:"results"`
	Total       int         `json:"total"`
	Pages       int         `json:"pages"`
	CurrentPage int         `json:"current_page"`
}

// LogEntry is one backend operation log line
type LogEntry struct {
	ID         int    `json:"id"`
	ActionType string `json:"action_type"`
	Message    string `json:"message"`
	CreatedAt  string `json:"created_at"`
}

// LogPage is one page of GET /logs
type LogPage struct {
	Logs        []LogEntry `json:"logs"`
	Total       int        `json:"total"`
	Pages       int        `json:"pages"`
	CurrentPage int        `json:"current_page"`
}

// TreeNode is a node of the backend's pre-built tree (GET /tree/{id}).
// Type is one of report, severity, vulnerability or instance.
type TreeNode struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	InstanceCount int        `json:"instance_count"`
	Status        FixStatus  `json:"status"`
	Children      []TreeNode `json:"children"`
}
