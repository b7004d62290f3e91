package mcpserver

import (
	"context"
	"fmt"

	"github.com/hakim/vulntriage/internal/apiclient"
	"github.com/hakim/vulntriage/internal/models"
	"github.com/hakim/vulntriage/internal/view"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerTools adds all triage tools to the MCP server.
func (s *Server) registerTools() {
	s.addDashboardStatsTool()
	s.addListReportsTool()
	s.addReportTreeTool()
	s.addUpdateStatusTool()
	s.addBatchStatusTool()
	s.addSaveNotesTool()
}

// apiError turns a backend failure into a tool error result.
func apiError(action string, err error) *mcp.CallToolResult {
	return errorResult(fmt.Sprintf("%s failed: %s", action, apiclient.UserMessage(err)))
}

var statusEnum = []string{"pending", "in_progress", "fixed", "wont_fix", "false_positive"}

// ═══════════════════════════════════════════════════════════════════════════
// dashboard_stats
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addDashboardStatsTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "dashboard_stats",
			Title: "Dashboard Statistics",
			Description: `Aggregate triage numbers across every imported report: report,
vulnerability and instance totals, instances per severity, fix progress and
the most recent reports.`,
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "Dashboard Statistics",
			},
		},
		s.handleDashboardStats,
	)
}

type dashboardResult struct {
	Reports         int            `json:"reports"`
	Vulnerabilities int            `json:"vulnerabilities"`
	Instances       int            `json:"instances"`
	Severity        []severityBar  `json:"severity"`
	FixedPercent    int            `json:"fixed_percent"`
	Progress        map[string]int `json:"progress"`
	Recent          []reportEntry  `json:"recent"`
}

type severityBar struct {
	Severity string  `json:"severity"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
}

type reportEntry struct {
	ID       int            `json:"id"`
	Site     string         `json:"site"`
	Imported string         `json:"imported"`
	HasNotes bool           `json:"has_notes,omitempty"`
	Severity map[string]int `json:"severity"`
}

func (s *Server) handleDashboardStats(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.record("dashboard_stats")

	stats, err := s.config.API.DashboardStats(ctx)
	if err != nil {
		return apiError("loading dashboard", err), nil
	}
	d := view.BuildDashboard(stats, s.config.RecentLimit)

	out := dashboardResult{
		Reports:         stats.TotalReports,
		Vulnerabilities: stats.TotalVulnerabilities,
		Instances:       stats.TotalInstances,
		Severity:        make([]severityBar, 0, len(d.Bars)),
		FixedPercent:    d.Ring.FixedPercent,
		Progress:        make(map[string]int, len(d.Ring.Segments)),
		Recent:          make([]reportEntry, 0, len(d.Recent)),
	}
	for _, b := range d.Bars {
		out.Severity = append(out.Severity, severityBar{Severity: string(b.Severity), Count: b.Count, Percent: b.Percent})
	}
	for _, seg := range d.Ring.Segments {
		out.Progress[string(seg.Status)] = seg.Count
	}
	for _, r := range d.Recent {
		out.Recent = append(out.Recent, reportEntry{ID: r.ID, Site: r.Site, Imported: r.Imported, Severity: badgeCounts(r.Badges)})
	}

	return jsonResult(out)
}

func badgeCounts(badges []view.Badge) map[string]int {
	out := make(map[string]int, len(badges))
	for _, b := range badges {
		out[string(b.Severity)] = b.Count
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════
// list_reports
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addListReportsTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "list_reports",
			Title: "List Reports",
			Description: `One page of imported reports, newest first, optionally filtered
by a search term matched against the site URL and file name. Use the
returned ids with get_report_tree.`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"page": map[string]any{
						"type":        "integer",
						"description": "1-based page number. Defaults to 1.",
						"minimum":     1,
					},
					"search": map[string]any{
						"type":        "string",
						"description": "Filter term. Leave empty for all reports.",
					},
				},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "List Reports",
			},
		},
		s.handleListReports,
	)
}

type listReportsArgs struct {
	Page   int    `json:"page"`
	Search string `json:"search"`
}

type listReportsResult struct {
	Reports []reportEntry `json:"reports"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	Pages   int           `json:"pages"`
	Search  string        `json:"search,omitempty"`
}

func (s *Server) handleListReports(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.record("list_reports")

	var args listReportsArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v. Expected optional 'page' (integer) and 'search' (string).", err)), nil
	}
	if args.Page < 1 {
		args.Page = 1
	}

	page, err := s.config.API.ListReports(ctx, args.Page, s.config.PageSize, args.Search)
	if err != nil {
		return apiError("loading reports", err), nil
	}
	list := view.BuildReportList(page, args.Search)

	out := listReportsResult{
		Reports: make([]reportEntry, 0, len(list.Rows)),
		Total:   list.Pagination.Total,
		Page:    list.Pagination.Current,
		Pages:   list.Pagination.Pages,
		Search:  list.Search,
	}
	for _, r := range list.Rows {
		out.Reports = append(out.Reports, reportEntry{
			ID: r.ID, Site: r.Site, Imported: r.Imported, HasNotes: r.HasNotes, Severity: badgeCounts(r.Badges),
		})
	}

	return jsonResult(out)
}

// ═══════════════════════════════════════════════════════════════════════════
// get_report_tree
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addReportTreeTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "get_report_tree",
			Title: "Get Report Tree",
			Description: `The findings of one report grouped severity > vulnerability >
instance, with instance counts and fix statuses. Pass instance_id to also get
the full detail of that instance (URL, method, parameter, attack, evidence,
fix notes).`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"report_id": map[string]any{
						"type":        "integer",
						"description": "Report id from list_reports.",
					},
					"instance_id": map[string]any{
						"type":        "integer",
						"description": "Optional instance to describe in full.",
					},
				},
				"required": []string{"report_id"},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "Get Report Tree",
			},
		},
		s.handleReportTree,
	)
}

type reportTreeArgs struct {
	ReportID   int `json:"report_id"`
	InstanceID int `json:"instance_id"`
}

type treeNode struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Label      string     `json:"label"`
	Count      int        `json:"count,omitempty"`
	Status     string     `json:"status,omitempty"`
	InstanceID int        `json:"instance_id,omitempty"`
	Children   []treeNode `json:"children,omitempty"`
}

type instanceDetail struct {
	InstanceID  int               `json:"instance_id"`
	Title       string            `json:"title"`
	Severity    string            `json:"severity"`
	Status      string            `json:"status"`
	Description string            `json:"description,omitempty"`
	Fields      map[string]string `json:"fields"`
}

type reportTreeResult struct {
	ReportID int             `json:"report_id"`
	Site     string          `json:"site"`
	Imported string          `json:"imported"`
	Notes    string          `json:"notes,omitempty"`
	Total    int             `json:"total_instances"`
	Tree     []treeNode      `json:"tree"`
	Selected *instanceDetail `json:"instance,omitempty"`
}

func (s *Server) handleReportTree(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.record("get_report_tree")

	var args reportTreeArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v. Expected 'report_id' (integer) and optional 'instance_id' (integer).", err)), nil
	}
	if args.ReportID <= 0 {
		return errorResult("report_id is required and must be positive"), nil
	}

	report, err := s.config.API.GetReport(ctx, args.ReportID)
	if err != nil {
		return apiError("loading report", err), nil
	}
	tree := view.BuildTree(report.Vulnerabilities)

	out := reportTreeResult{
		ReportID: report.ID,
		Site:     report.DisplayName(),
		Imported: view.FormatDate(report.ImportedAt),
		Notes:    report.Notes,
		Total:    tree.Total,
		Tree:     convertNodes(tree.Groups),
	}

	if args.InstanceID != 0 {
		d, ok := view.InstanceDetail(report, args.InstanceID)
		if !ok {
			return errorResult(fmt.Sprintf("instance %d is not part of report %d", args.InstanceID, args.ReportID)), nil
		}
		detail := &instanceDetail{
			InstanceID:  d.InstanceID,
			Title:       d.Title,
			Severity:    d.Severity.Label(),
			Status:      string(d.Status),
			Description: d.Description,
			Fields:      make(map[string]string, len(d.Fields)),
		}
		for _, f := range d.Fields {
			detail.Fields[f.Label] = f.Value
		}
		out.Selected = detail
	}

	return jsonResult(out)
}

func convertNodes(nodes []*view.Node) []treeNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]treeNode, 0, len(nodes))
	for _, n := range nodes {
		tn := treeNode{
			ID:       n.ID,
			Kind:     n.Kind.String(),
			Label:    n.Label,
			Children: convertNodes(n.Children),
		}
		if n.Leaf() {
			tn.Status = string(n.Status)
			tn.InstanceID = n.InstanceID
		} else {
			tn.Count = n.Count
		}
		out = append(out, tn)
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════
// update_instance_status
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addUpdateStatusTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "update_instance_status",
			Title: "Update Instance Status",
			Description: `Record the fix status of one instance, optionally with who fixed
it and free-text notes.`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"instance_id": map[string]any{
						"type":        "integer",
						"description": "Instance id from get_report_tree.",
					},
					"status": map[string]any{
						"type":        "string",
						"description": "New fix status.",
						"enum":        statusEnum,
					},
					"fixed_by": map[string]any{
						"type":        "string",
						"description": "Who fixed it.",
					},
					"notes": map[string]any{
						"type":        "string",
						"description": "Fix notes.",
					},
				},
				"required": []string{"instance_id", "status"},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:    false,
				IdempotentHint:  true,
				DestructiveHint: boolPtr(false),
				OpenWorldHint:   boolPtr(false),
				Title:           "Update Instance Status",
			},
		},
		s.handleUpdateStatus,
	)
}

type updateStatusArgs struct {
	InstanceID int    `json:"instance_id"`
	Status     string `json:"status"`
	FixedBy    string `json:"fixed_by"`
	Notes      string `json:"notes"`
}

func (s *Server) handleUpdateStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.record("update_instance_status")

	var args updateStatusArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v. Expected 'instance_id' (integer) and 'status' (string).", err)), nil
	}
	if args.InstanceID <= 0 {
		return errorResult("instance_id is required and must be positive"), nil
	}
	status, err := models.ParseFixStatus(args.Status)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	res, err := s.config.API.UpdateInstanceStatus(ctx, args.InstanceID, models.StatusUpdate{
		Status:  status,
		FixedBy: args.FixedBy,
		Notes:   args.Notes,
	})
	if err != nil {
		return apiError("status update", err), nil
	}

	return jsonResult(map[string]any{
		"instance_id": args.InstanceID,
		"status":      string(status),
		"success":     res.Success,
	})
}

// ═══════════════════════════════════════════════════════════════════════════
// batch_update_status
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addBatchStatusTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "batch_update_status",
			Title: "Batch Update Status",
			Description: `Apply one fix status to several instances at once. Nothing is
sent when the status is missing or the id list is empty.`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"instance_ids": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "integer"},
						"description": "Instance ids from get_report_tree.",
					},
					"status": map[string]any{
						"type":        "string",
						"description": "New fix status.",
						"enum":        statusEnum,
					},
				},
				"required": []string{"instance_ids", "status"},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:    false,
				IdempotentHint:  true,
				DestructiveHint: boolPtr(false),
				OpenWorldHint:   boolPtr(false),
				Title:           "Batch Update Status",
			},
		},
		s.handleBatchStatus,
	)
}

type batchStatusArgs struct {
	InstanceIDs []int  `json:"instance_ids"`
	Status      string `json:"status"`
}

func (s *Server) handleBatchStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.record("batch_update_status")

	var args batchStatusArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v. Expected 'instance_ids' (array of integers) and 'status' (string).", err)), nil
	}

	sel := view.NewSelection(args.InstanceIDs...)
	status, err := view.ValidateBatch(args.Status, sel)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	res, err := s.config.API.BatchUpdateStatus(ctx, models.BatchStatusUpdate{
		InstanceIDs: sel.IDs(),
		Status:      status,
	})
	if err != nil {
		return apiError("batch update", err), nil
	}

	updated := res.UpdatedCount
	if updated == 0 {
		updated = sel.Len()
	}
	return jsonResult(map[string]any{
		"status":        string(status),
		"updated_count": updated,
	})
}

// ═══════════════════════════════════════════════════════════════════════════
// save_report_notes
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addSaveNotesTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:        "save_report_notes",
			Title:       "Save Report Notes",
			Description: `Replace the free-text notes of a report. An empty string clears them.`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"report_id": map[string]any{
						"type":        "integer",
						"description": "Report id from list_reports.",
					},
					"notes": map[string]any{
						"type":        "string",
						"description": "New notes text.",
					},
				},
				"required": []string{"report_id", "notes"},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:    false,
				IdempotentHint:  true,
				DestructiveHint: boolPtr(true),
				OpenWorldHint:   boolPtr(false),
				Title:           "Save Report Notes",
			},
		},
		s.handleSaveNotes,
	)
}

type saveNotesArgs struct {
	ReportID int    `json:"report_id"`
	Notes    string `json:"notes"`
}

func (s *Server) handleSaveNotes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.record("save_report_notes")

	var args saveNotesArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v. Expected 'report_id' (integer) and 'notes' (string).", err)), nil
	}
	if args.ReportID <= 0 {
		return errorResult("report_id is required and must be positive"), nil
	}

	if err := s.config.API.UpdateNotes(ctx, args.ReportID, args.Notes); err != nil {
		return apiError("saving notes", err), nil
	}
	return textResult(fmt.Sprintf("Notes saved for report %d", args.ReportID)), nil
}
