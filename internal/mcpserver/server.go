// Package mcpserver exposes the triage workflow as MCP tools so an agent can
// read dashboards and reports and update fix statuses through the same view
// layer and validation the web dashboard uses.
package mcpserver

import (
	"context"
	"fmt"
	"io"

	"github.com/hakim/vulntriage/internal/jsonutil"
	"github.com/hakim/vulntriage/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

const serverInstructions = `Vulnerability report triage tools.

Typical flow: dashboard_stats for the overview, list_reports to find a
report, get_report_tree to see its severity > vulnerability > instance
outline, then update_instance_status or batch_update_status to record
triage decisions. Statuses: pending, in_progress, fixed, wont_fix,
false_positive.`

// API is the subset of the backend client the tools call.
type API interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	ListReports(ctx context.Context, page, perPage int, search string) (*models.ReportPage, error)
	GetReport(ctx context.Context, id int) (*models.Report, error)
	UpdateNotes(ctx context.Context, id int, notes string) error
	UpdateInstanceStatus(ctx context.Context, id int, update models.StatusUpdate) (*models.StatusResult, error)
	BatchUpdateStatus(ctx context.Context, update models.BatchStatusUpdate) (*models.BatchResult, error)
}

// Recorder counts tool invocations.
type Recorder interface {
	IntentDispatched(view, intent string)
}

// Config holds MCP server configuration.
type Config struct {
	API         API
	Version     string
	PageSize    int
	RecentLimit int
	Metrics     Recorder
	Logger      *logrus.Logger
}

// Server wraps the MCP server with the triage tools.
type Server struct {
	mcp    *mcp.Server
	config Config
	log    *logrus.Logger
}

// New creates a server with every tool registered.
func New(cfg Config) *Server {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 5
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	s := &Server{config: cfg, log: logger}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "vulntriage",
			Title:   "Vulnerability Triage",
			Version: cfg.Version,
		},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
		},
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

// RunStdio serves the tools over stdin/stdout until ctx is cancelled or the
// client disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	s.log.Info("mcp server listening on stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) record(tool string) {
	if s.config.Metrics != nil {
		s.config.Metrics.IntentDispatched("mcp", tool)
	}
	s.log.WithField("tool", tool).Debug("mcp tool call")
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// jsonResult marshals v to indented JSON and wraps it in a CallToolResult.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := jsonutil.MarshalIndent(v, "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult reports a tool failure inside the result so the caller can
// read it and retry with different arguments.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs decodes the raw tool arguments into dst. Missing arguments
// leave dst untouched.
func parseArgs(req *mcp.CallToolRequest, dst any) error {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := jsonutil.Unmarshal(req.Params.Arguments, dst); err != nil {
		return fmt.Errorf("parsing tool arguments: %w", err)
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
